package devserver

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kashguard/go-market-client/internal/api"
	"github.com/kashguard/go-market-client/internal/auth"
	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/marketplace"
	"github.com/kashguard/go-market-client/internal/session"
	"github.com/kashguard/go-market-client/internal/signing"
	"github.com/kashguard/go-market-client/internal/txn"
	"github.com/kashguard/go-market-client/internal/wallet"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stack wires the real client, wallet, handshake and orchestrator against
// an in-process dev server.
type stack struct {
	server  *Server
	api     *api.Client
	wallet  *wallet.LocalWallet
	store   *session.MemStore
	auth    *auth.Handshake
	service *marketplace.Service
	account wallet.Account
}

func newStack(t *testing.T) *stack {
	t.Helper()

	server := New("integration-secret", zerolog.Nop())
	httpSrv := httptest.NewServer(server.Echo)
	t.Cleanup(httpSrv.Close)

	w, err := wallet.NewLocalWallet(filepath.Join(t.TempDir(), "wallet.json"), httpSrv.URL, zerolog.Nop())
	require.NoError(t, err)
	account, err := w.Connect(context.Background(), "local")
	require.NoError(t, err)

	store := session.NewMemStore()
	client := api.NewClient(httpSrv.URL, store, zerolog.Nop())
	handshake := auth.New(client, w, store, "marketctl", 2, zerolog.Nop(), auth.WithRetryDelay(time.Millisecond))

	node := txn.NewNodeClient(httpSrv.URL, 10*time.Millisecond, zerolog.Nop())
	orchestrator := txn.NewOrchestrator(w, node, 5*time.Second, zerolog.Nop())
	service := marketplace.New(client, orchestrator, zerolog.Nop())

	return &stack{
		server:  server,
		api:     client,
		wallet:  w,
		store:   store,
		auth:    handshake,
		service: service,
		account: account,
	}
}

func (s *stack) login(t *testing.T) {
	t.Helper()
	state, err := s.auth.EnsureSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, auth.StateVerified, state)
}

func TestHandshakeEndToEnd(t *testing.T) {
	s := newStack(t)

	s.login(t)

	token, err := s.store.Get()
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// The bearer token works against authenticated reads.
	profile, err := s.api.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.account.Address, profile.Address)
}

func TestChallengeIsSingleUse(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	challenge, err := s.api.RequestChallenge(ctx, s.account.Address)
	require.NoError(t, err)

	signed, err := s.wallet.SignMessage(ctx, wallet.SignMessageRequest{
		Message:     challenge.MessageToSign,
		Nonce:       challenge.Nonce,
		Address:     s.account.Address,
		Application: "marketctl",
		ChainID:     2,
	})
	require.NoError(t, err)

	sig := signing.Canonical{Value: signed.Signature.(string)}
	_, err = s.api.VerifySignature(ctx, s.account.Address, s.account.PublicKey, sig, signed.FullMessage)
	require.NoError(t, err)

	// Replaying the same proof must be refused.
	_, err = s.api.VerifySignature(ctx, s.account.Address, s.account.PublicKey, sig, signed.FullMessage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used")
}

func TestListingLifecycleEndToEnd(t *testing.T) {
	s := newStack(t)
	s.login(t)
	s.server.SeedToken(s.account.Address, market.OwnedToken{ID: "nft1", Name: "One"})

	out, err := s.service.ListNFT(context.Background(), "nft1", "5", "APT")
	require.NoError(t, err)
	assert.NotEmpty(t, out.TrackingID)
	assert.NotEmpty(t, out.TransactionHash)
	assert.NotZero(t, out.BlockHeight)

	// Run every other mutating flow once; the dev server rotates the
	// metadata shape per prepare call, so together these cover all three.
	_, err = s.service.RelistNFT(context.Background(), "nft1", "7", "APT")
	require.NoError(t, err)

	bidOut, err := s.service.PlaceBid(context.Background(), "nft1", "6", "APT")
	require.NoError(t, err)
	assert.NotEmpty(t, bidOut.TransactionHash)

	_, err = s.service.BuyNFT(context.Background(), "nft1")
	require.NoError(t, err)

	_, err = s.service.DelistNFT(context.Background(), "nft1")
	require.NoError(t, err)
}

func TestChainFailureSurfacesHashAndSkipsConfirm(t *testing.T) {
	s := newStack(t)
	s.login(t)

	s.server.FailNextTransaction("Move abort in 0x1::marketplace: EALREADY_LISTED")

	_, err := s.service.ListNFT(context.Background(), "nft1", "5", "APT")
	require.Error(t, err)

	var me *market.Error
	require.ErrorAs(t, err, &me)
	assert.Equal(t, market.ReasonChainExecutionFailed, me.Reason)
	assert.NotEmpty(t, me.TxHash)
	assert.Contains(t, me.UserMessage(), me.TxHash)

	// The tracking record was never confirmed.
	s.server.mu.Lock()
	for _, rec := range s.server.tracking {
		assert.Empty(t, rec.ConfirmedHash)
	}
	s.server.mu.Unlock()
}

func TestCollectionDeployConfigureMint(t *testing.T) {
	s := newStack(t)
	s.login(t)
	ctx := context.Background()

	s.server.SeedDraft(market.Draft{
		ID:      "d1",
		Name:    "Dev Apes",
		Status:  market.DraftStatusIPFSPublished,
		BaseURI: "ipfs://bafy.../",
		Supply:  100,
	})

	// Configure before deploy+sync must be refused client-side.
	_, err := s.service.ConfigureCollection(ctx, "d1", api.ConfigurePayload{Phase: market.SalePhasePublic})
	require.Error(t, err)
	assert.ErrorIs(t, err, &market.Error{Reason: market.ReasonMissingParameter})

	_, err = s.service.DeployCollection(ctx, "d1")
	require.NoError(t, err)

	draft, err := s.service.SyncCollection(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, market.DraftStatusOnchainCreated, draft.Status)
	assert.NotEmpty(t, draft.OwnerAddr)
	assert.NotEmpty(t, draft.CollectionID)

	_, err = s.service.ConfigureCollection(ctx, "d1", api.ConfigurePayload{
		Phase:       market.SalePhasePublic,
		PublicPrice: "10",
		Allowlist:   []string{s.account.Address},
	})
	require.NoError(t, err)

	// The dev backend executes mints itself: immediate result, no confirm.
	out, err := s.service.MintRandom(ctx, "d1", 1)
	require.NoError(t, err)
	assert.True(t, out.Immediate)
	assert.NotEmpty(t, out.TransactionHash)
	require.NotNil(t, out.TokenIndex)

	// The minted token shows up in the authoritative inventory.
	items, total, err := s.api.MeNFTs(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "d1", items[0].CollectionID)
}

func TestUnauthenticatedMutationRefusedClientSide(t *testing.T) {
	s := newStack(t)
	// No login: the precondition fires before any network call.
	_, err := s.service.ListNFT(context.Background(), "nft1", "5", "APT")
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrNotAuthenticated)
}
