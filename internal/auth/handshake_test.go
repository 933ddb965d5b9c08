package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/session"
	"github.com/kashguard/go-market-client/internal/signing"
	"github.com/kashguard/go-market-client/internal/wallet"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mu           sync.Mutex
	postCalls    int
	getCalls     int
	verifyCalls  int
	postErr      error
	getErr       error
	verifyErr    error
	challenge    market.Challenge
	token        string
	lastVerified struct {
		address, publicKey, fullMessage string
		sig                             signing.Canonical
	}
}

func (m *mockBackend) RequestChallenge(ctx context.Context, address string) (market.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postCalls++
	if m.postErr != nil {
		return market.Challenge{}, m.postErr
	}
	return m.challenge, nil
}

func (m *mockBackend) RequestChallengeGET(ctx context.Context, address string) (market.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return market.Challenge{}, m.getErr
	}
	return m.challenge, nil
}

func (m *mockBackend) VerifySignature(ctx context.Context, address, publicKey string, sig signing.Canonical, fullMessage string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyCalls++
	if m.verifyErr != nil {
		return "", m.verifyErr
	}
	m.lastVerified.address = address
	m.lastVerified.publicKey = publicKey
	m.lastVerified.sig = sig
	m.lastVerified.fullMessage = fullMessage
	return m.token, nil
}

type mockSigner struct {
	mu        sync.Mutex
	account   wallet.Account
	signCalls int
	// signErrs is popped per call; nil means success.
	signErrs []error
	result   wallet.SignMessageResult
	gate     chan struct{} // when set, SignMessage blocks on it
}

func (m *mockSigner) Account() (wallet.Account, error) {
	if m.account.Address == "" {
		return wallet.Account{}, market.E(market.ReasonWalletUnavailable, "not connected")
	}
	return m.account, nil
}

func (m *mockSigner) SignMessage(ctx context.Context, req wallet.SignMessageRequest) (wallet.SignMessageResult, error) {
	m.mu.Lock()
	m.signCalls++
	var err error
	if len(m.signErrs) > 0 {
		err = m.signErrs[0]
		m.signErrs = m.signErrs[1:]
	}
	gate := m.gate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return wallet.SignMessageResult{}, err
	}
	return m.result, nil
}

func (m *mockSigner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signCalls
}

func newTestHandshake(backend *mockBackend, signer *mockSigner, store session.Store) *Handshake {
	return New(backend, signer, store, "marketctl", 2, zerolog.Nop(), WithRetryDelay(time.Millisecond))
}

func freshMocks() (*mockBackend, *mockSigner) {
	backend := &mockBackend{
		challenge: market.Challenge{MessageToSign: "log me in", Nonce: "n-1"},
		token:     "bearer-1",
	}
	signer := &mockSigner{
		account: wallet.Account{Address: "0xA1", PublicKey: "0xpub"},
		result: wallet.SignMessageResult{
			Signature:   "0xsig",
			PublicKey:   "0xpub",
			FullMessage: "APTOS\nmessage: log me in\nnonce: n-1",
		},
	}
	return backend, signer
}

func TestLoginHappyPath(t *testing.T) {
	backend, signer := freshMocks()
	store := session.NewMemStore()
	h := newTestHandshake(backend, signer, store)

	state, err := h.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateVerified, state)

	// Exactly one challenge, one sign, one verify.
	assert.Equal(t, 1, backend.postCalls)
	assert.Equal(t, 0, backend.getCalls)
	assert.Equal(t, 1, signer.calls())
	assert.Equal(t, 1, backend.verifyCalls)

	// Address is canonicalized and the token persisted.
	assert.Equal(t, "0xa1", backend.lastVerified.address)
	assert.Equal(t, "0xpub", backend.lastVerified.publicKey)
	assert.Equal(t, "0xsig", backend.lastVerified.sig.Value)

	token, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "bearer-1", token)
}

func TestEnsureSessionNoOpWithToken(t *testing.T) {
	backend, signer := freshMocks()
	store := session.NewMemStore()
	require.NoError(t, store.Set("existing"))
	h := newTestHandshake(backend, signer, store)

	state, err := h.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateVerified, state)
	assert.Zero(t, backend.postCalls)
	assert.Zero(t, signer.calls())
}

func TestEnsureSessionRunsHandshakeWithoutToken(t *testing.T) {
	backend, signer := freshMocks()
	store := session.NewMemStore()
	h := newTestHandshake(backend, signer, store)

	state, err := h.EnsureSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateVerified, state)
	assert.Equal(t, 1, backend.verifyCalls)
}

func TestLoginChallengePostFallsBackToGet(t *testing.T) {
	backend, signer := freshMocks()
	backend.postErr = assert.AnError // e.g. HTTP 500
	store := session.NewMemStore()
	h := newTestHandshake(backend, signer, store)

	state, err := h.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateVerified, state)
	assert.Equal(t, 1, backend.postCalls)
	assert.Equal(t, 1, backend.getCalls)
	assert.Equal(t, 1, signer.calls(), "handshake proceeds to signing with the GET-derived challenge")
}

func TestLoginChallengeUnavailable(t *testing.T) {
	backend, signer := freshMocks()
	backend.postErr = assert.AnError
	backend.getErr = assert.AnError
	h := newTestHandshake(backend, signer, session.NewMemStore())

	state, err := h.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, err, &market.Error{Reason: market.ReasonChallengeUnavailable})
	assert.Zero(t, signer.calls())
}

func TestLoginSpuriousSigningFailureRetriesOnce(t *testing.T) {
	backend, signer := freshMocks()
	signer.signErrs = []error{assert.AnError} // first attempt flakes
	store := session.NewMemStore()
	h := newTestHandshake(backend, signer, store)

	state, err := h.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateVerified, state)
	assert.Equal(t, 2, signer.calls())
}

func TestLoginSigningFailsTwice(t *testing.T) {
	backend, signer := freshMocks()
	signer.signErrs = []error{assert.AnError, assert.AnError}
	h := newTestHandshake(backend, signer, session.NewMemStore())

	state, err := h.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, 2, signer.calls(), "exactly one retry")
	assert.Zero(t, backend.verifyCalls)
}

func TestLoginUserRejectionNeverRetried(t *testing.T) {
	backend, signer := freshMocks()
	signer.signErrs = []error{market.E(market.ReasonUserRejected, "rejected")}
	h := newTestHandshake(backend, signer, session.NewMemStore())

	state, err := h.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, err, market.ErrUserRejected)
	assert.Equal(t, 1, signer.calls(), "zero retries on rejection")
	assert.Zero(t, backend.verifyCalls)
}

func TestLoginVerifyRejected(t *testing.T) {
	backend, signer := freshMocks()
	backend.verifyErr = assert.AnError
	store := session.NewMemStore()
	h := newTestHandshake(backend, signer, store)

	state, err := h.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, err, &market.Error{Reason: market.ReasonVerifyRejected})

	token, err := store.Get()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestLoginPublicKeyFallsBackToAccount(t *testing.T) {
	backend, signer := freshMocks()
	signer.result.PublicKey = "" // vendor did not attach one
	h := newTestHandshake(backend, signer, session.NewMemStore())

	_, err := h.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xpub", backend.lastVerified.publicKey)
}

func TestLoginNoPublicKeyAnywhere(t *testing.T) {
	backend, signer := freshMocks()
	signer.result.PublicKey = ""
	signer.account.PublicKey = ""
	h := newTestHandshake(backend, signer, session.NewMemStore())

	state, err := h.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, err, &market.Error{Reason: market.ReasonMissingParameter})
	assert.Zero(t, backend.verifyCalls)
}

func TestLoginSingleFlightPerAddress(t *testing.T) {
	backend, signer := freshMocks()
	gate := make(chan struct{})
	signer.gate = gate
	h := newTestHandshake(backend, signer, session.NewMemStore())

	done := make(chan error, 1)
	go func() {
		_, err := h.Login(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return signer.calls() == 1 }, time.Second, 5*time.Millisecond)

	// A second run for the same address is refused while the first is in
	// flight.
	state, err := h.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, err, market.ErrHandshakeInFlight)

	close(gate)
	require.NoError(t, <-done)

	// After the terminal state the guard is cleared.
	_, err = h.Login(context.Background())
	require.NoError(t, err)
}

func TestLoginPostLoginHookBestEffort(t *testing.T) {
	backend, signer := freshMocks()
	store := session.NewMemStore()
	hookCalled := false
	h := New(backend, signer, store, "marketctl", 2, zerolog.Nop(),
		WithRetryDelay(time.Millisecond),
		WithPostLogin(func(ctx context.Context) error {
			hookCalled = true
			return assert.AnError // must only be logged
		}))

	state, err := h.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateVerified, state)
	assert.True(t, hookCalled)
}

func TestLogoutClearsToken(t *testing.T) {
	backend, signer := freshMocks()
	store := session.NewMemStore()
	h := newTestHandshake(backend, signer, store)

	_, err := h.Login(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.Logout(context.Background()))

	token, err := store.Get()
	require.NoError(t, err)
	assert.Empty(t, token)
}
