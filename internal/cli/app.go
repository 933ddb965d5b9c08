package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/kashguard/go-market-client/internal/api"
	"github.com/kashguard/go-market-client/internal/auth"
	"github.com/kashguard/go-market-client/internal/config"
	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/marketplace"
	"github.com/kashguard/go-market-client/internal/session"
	"github.com/kashguard/go-market-client/internal/txn"
	"github.com/kashguard/go-market-client/internal/wallet"
)

// app holds the wired client stack shared by all subcommands. It is
// populated once in the root PersistentPreRunE.
type app struct {
	cfg     config.Client
	wallet  *wallet.LocalWallet
	store   *session.FileStore
	api     *api.Client
	auth    *auth.Handshake
	service *marketplace.Service
}

func (a *app) load(verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Verbose = cfg.Verbose || verbose
	a.cfg = cfg

	a.wallet, err = wallet.NewLocalWallet(cfg.WalletKeyFile, cfg.NodeURL, log.Logger)
	if err != nil {
		return err
	}
	a.store = session.NewFileStore(cfg.SessionFile)
	a.api = api.NewClient(cfg.BackendURL, a.store, log.Logger)
	a.auth = auth.New(a.api, a.wallet, a.store, cfg.Application, cfg.ChainID, log.Logger)

	node := txn.NewNodeClient(cfg.NodeURL, cfg.ConfirmPollInterval, log.Logger)
	orchestrator := txn.NewOrchestrator(a.wallet, node, cfg.SigningTimeout, log.Logger)
	a.service = marketplace.New(a.api, orchestrator, log.Logger)
	return nil
}

// connect opens the wallet and ensures a verified session, returning a
// context bounded by the configured signing and confirmation windows.
func (a *app) connect(parent context.Context) (context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(parent, a.cfg.SigningTimeout+a.cfg.ConfirmTimeout)

	if _, err := a.wallet.Connect(ctx, a.cfg.WalletName); err != nil {
		cancel()
		return nil, nil, err
	}
	if _, err := a.auth.EnsureSession(ctx); err != nil {
		cancel()
		return nil, nil, err
	}
	return ctx, cancel, nil
}

func userFacing(err error) string {
	var me *market.Error
	if errors.As(err, &me) {
		return me.UserMessage()
	}
	return err.Error()
}
