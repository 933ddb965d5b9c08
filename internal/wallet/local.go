package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kashguard/go-market-client/internal/market"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// KeyFile is the on-disk schema of a local wallet.
type KeyFile struct {
	Address    string    `json:"address"`
	PublicKey  string    `json:"public_key"`
	PrivateKey string    `json:"private_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// LocalWallet is a development wallet backed by an ed25519 key file. It
// signs login messages locally and submits entry functions to the fullnode
// JSON submit endpoint. It never rejects or flakes on its own; tests
// exercise those paths with mocks.
type LocalWallet struct {
	nodeURL   string
	http      *http.Client
	log       zerolog.Logger
	priv      ed25519.PrivateKey
	account   Account
	connected bool
}

// NewLocalWallet loads the key file, generating one first when it does not
// exist yet.
func NewLocalWallet(keyPath, nodeURL string, log zerolog.Logger) (*LocalWallet, error) {
	kf, err := loadOrCreateKeyFile(keyPath)
	if err != nil {
		return nil, err
	}
	privBytes, err := hexutil.Decode(kf.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode private key")
	}
	priv := ed25519.PrivateKey(privBytes)
	pub := priv.Public().(ed25519.PublicKey)

	return &LocalWallet{
		nodeURL: nodeURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
		priv:    priv,
		account: Account{
			Address:   DeriveAddress(pub),
			PublicKey: hexutil.Encode(pub),
		},
	}, nil
}

func loadOrCreateKeyFile(path string) (*KeyFile, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var kf KeyFile
		if err := json.Unmarshal(data, &kf); err != nil {
			return nil, errors.Wrap(err, "failed to parse wallet key file")
		}
		return &kf, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read wallet key file")
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate key pair")
	}
	kf := &KeyFile{
		Address:    DeriveAddress(pub),
		PublicKey:  hexutil.Encode(pub),
		PrivateKey: hexutil.Encode(priv),
		CreatedAt:  time.Now().UTC(),
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create wallet directory")
	}
	out, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal wallet key file")
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return nil, errors.Wrap(err, "failed to write wallet key file")
	}
	return kf, nil
}

func (w *LocalWallet) Connect(ctx context.Context, name string) (Account, error) {
	w.connected = true
	w.log.Debug().Str("wallet", name).Str("address", w.account.Address).Msg("Local wallet connected")
	return w.account, nil
}

func (w *LocalWallet) Disconnect(ctx context.Context) error {
	w.connected = false
	return nil
}

func (w *LocalWallet) Account() (Account, error) {
	if !w.connected {
		return Account{}, market.E(market.ReasonWalletUnavailable, "wallet is not connected")
	}
	return w.account, nil
}

// FullMessage renders the envelope that is actually signed. The chain's
// wallet standard pins the field order, so verifiers can rebuild it.
func FullMessage(req SignMessageRequest) string {
	return fmt.Sprintf("APTOS\naddress: %s\napplication: %s\nchainId: %d\nmessage: %s\nnonce: %s",
		req.Address, req.Application, req.ChainID, req.Message, req.Nonce)
}

func (w *LocalWallet) SignMessage(ctx context.Context, req SignMessageRequest) (SignMessageResult, error) {
	if !w.connected {
		return SignMessageResult{}, market.E(market.ReasonWalletUnavailable, "wallet is not connected")
	}
	full := FullMessage(req)
	sig := ed25519.Sign(w.priv, []byte(full))
	return SignMessageResult{
		Signature:   hexutil.Encode(sig),
		PublicKey:   w.account.PublicKey,
		FullMessage: full,
	}, nil
}

// submitPayload is the fullnode JSON submit body. The signature covers the
// canonical JSON encoding of sender+data.
type submitPayload struct {
	Sender    string               `json:"sender"`
	Data      market.EntryFunction `json:"data"`
	PublicKey string               `json:"public_key"`
	Signature string               `json:"signature"`
}

func (w *LocalWallet) SignAndSubmitTransaction(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if !w.connected {
		return SubmitResult{}, market.E(market.ReasonWalletUnavailable, "wallet is not connected")
	}

	signed, err := json.Marshal(req)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "failed to encode transaction for signing")
	}
	payload := submitPayload{
		Sender:    req.Sender,
		Data:      req.Data,
		PublicKey: w.account.PublicKey,
		Signature: hexutil.Encode(ed25519.Sign(w.priv, signed)),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "failed to marshal submit payload")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.nodeURL+"/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "failed to create submit request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(httpReq)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "failed to submit transaction")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "failed to read submit response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SubmitResult{}, errors.Errorf("submit rejected with HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result SubmitResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return SubmitResult{}, errors.Wrap(err, "failed to parse submit response")
	}
	w.log.Debug().Str("hash", result.Hash).Str("function", req.Data.Function).Msg("Transaction submitted")
	return result, nil
}
