// Package auth implements the wallet-authentication handshake: prove
// control of an address to the backend via challenge/sign/verify and hold
// the resulting bearer credential in the session store.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/session"
	"github.com/kashguard/go-market-client/internal/signing"
	"github.com/kashguard/go-market-client/internal/wallet"
	"github.com/rs/zerolog"
)

// Backend is the slice of the API client the handshake needs.
type Backend interface {
	// RequestChallenge POSTs the address in the body.
	RequestChallenge(ctx context.Context, address string) (market.Challenge, error)
	// RequestChallengeGET is the fallback with the address as a query
	// parameter, for backends that reject the POST form.
	RequestChallengeGET(ctx context.Context, address string) (market.Challenge, error)
	// VerifySignature exchanges the signed proof for a bearer token.
	VerifySignature(ctx context.Context, address, publicKey string, sig signing.Canonical, fullMessage string) (string, error)
}

// Signer is the slice of the wallet the handshake needs.
type Signer interface {
	Account() (wallet.Account, error)
	SignMessage(ctx context.Context, req wallet.SignMessageRequest) (wallet.SignMessageResult, error)
}

// Handshake drives the challenge/sign/verify flow. One instance serves the
// whole process; runs are single-flight per address.
type Handshake struct {
	backend  Backend
	signer   Signer
	sessions session.Store

	application string
	chainID     uint8

	// retryDelay sits between the two signing attempts. Some wallet
	// vendors spuriously fail the first sign after connect.
	retryDelay time.Duration

	// onLogin runs after a successful verify, best effort (e.g. profile
	// prefetch). Failures are logged, never propagated.
	onLogin func(ctx context.Context) error

	log zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

const defaultRetryDelay = 1500 * time.Millisecond

// Option configures a Handshake.
type Option func(*Handshake)

func WithRetryDelay(d time.Duration) Option {
	return func(h *Handshake) { h.retryDelay = d }
}

func WithPostLogin(fn func(ctx context.Context) error) Option {
	return func(h *Handshake) { h.onLogin = fn }
}

func New(backend Backend, signer Signer, sessions session.Store, application string, chainID uint8, log zerolog.Logger, opts ...Option) *Handshake {
	h := &Handshake{
		backend:     backend,
		signer:      signer,
		sessions:    sessions,
		application: application,
		chainID:     chainID,
		retryDelay:  defaultRetryDelay,
		log:         log,
		inFlight:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EnsureSession runs the handshake automatically when a wallet is connected
// but no persisted credential exists. With a live token it is a no-op; this
// is the transition into Connected(noToken) from the state machine.
func (h *Handshake) EnsureSession(ctx context.Context) (State, error) {
	token, err := h.sessions.Get()
	if err != nil {
		return StateFailed, err
	}
	if token != "" {
		return StateVerified, nil
	}
	return h.Login(ctx)
}

// Login performs one full handshake run for the connected account and
// persists the bearer token. It never runs twice concurrently for the same
// address; the guard is cleared on every terminal state.
func (h *Handshake) Login(ctx context.Context) (State, error) {
	account, err := h.signer.Account()
	if err != nil {
		return StateDisconnected, market.WrapE(market.ReasonWalletUnavailable, err, "no connected wallet account")
	}
	address, err := wallet.CanonicalAddress(account.Address)
	if err != nil {
		return StateDisconnected, err
	}

	if !h.acquire(address) {
		return StateFailed, market.E(market.ReasonHandshakeInFlight, "handshake already running for %s", address)
	}
	defer h.release(address)

	log := h.log.With().Str("address", address).Logger()
	log.Debug().Msg("Starting auth handshake")

	// Connected -> ChallengeIssued
	challenge, err := h.requestChallenge(ctx, address)
	if err != nil {
		log.Warn().Err(err).Msg("Challenge unavailable")
		return StateFailed, market.WrapE(market.ReasonChallengeUnavailable, err, "could not obtain login challenge")
	}

	// ChallengeIssued -> Signed
	signed, err := h.signChallenge(ctx, address, challenge)
	if err != nil {
		return StateFailed, err
	}

	// Signed -> Verified
	canonical, err := signing.Normalize(signed.Signature)
	if err != nil {
		log.Error().Err(err).Interface("raw_signature", signed.Signature).Msg("Wallet returned an unusable signature shape")
		return StateFailed, err
	}
	publicKey := signed.PublicKey
	if publicKey == "" {
		publicKey = account.PublicKey
	}
	if publicKey == "" {
		return StateFailed, market.E(market.ReasonMissingParameter, "no public key available from the signature result or the wallet account")
	}
	fullMessage := signed.FullMessage
	if fullMessage == "" {
		fullMessage = challenge.MessageToSign
	}

	token, err := h.backend.VerifySignature(ctx, address, publicKey, canonical, fullMessage)
	if err != nil {
		log.Warn().Err(err).Msg("Verify rejected")
		return StateFailed, market.WrapE(market.ReasonVerifyRejected, err, "the server rejected the signed proof")
	}
	if err := h.sessions.Set(token); err != nil {
		return StateFailed, err
	}
	log.Info().Msg("Authenticated")

	if h.onLogin != nil {
		if err := h.onLogin(ctx); err != nil {
			log.Warn().Err(err).Msg("Post-login hook failed")
		}
	}
	return StateVerified, nil
}

// Logout clears the persisted credential. Wallet disconnect is the
// caller's concern.
func (h *Handshake) Logout(ctx context.Context) error {
	return h.sessions.Clear()
}

func (h *Handshake) requestChallenge(ctx context.Context, address string) (market.Challenge, error) {
	challenge, err := h.backend.RequestChallenge(ctx, address)
	if err == nil {
		return challenge, nil
	}
	h.log.Debug().Err(err).Msg("Challenge POST failed, falling back to GET")
	return h.backend.RequestChallengeGET(ctx, address)
}

// signChallenge asks the wallet to sign the challenge with connection
// context attached. A spurious failure is retried exactly once after a
// short delay; a user rejection is terminal and never retried.
func (h *Handshake) signChallenge(ctx context.Context, address string, challenge market.Challenge) (wallet.SignMessageResult, error) {
	req := wallet.SignMessageRequest{
		Message:     challenge.MessageToSign,
		Nonce:       challenge.Nonce,
		Address:     address,
		Application: h.application,
		ChainID:     h.chainID,
	}

	result, err := h.signer.SignMessage(ctx, req)
	if err == nil {
		return result, nil
	}
	if errors.Is(err, market.ErrUserRejected) {
		return wallet.SignMessageResult{}, err
	}

	h.log.Warn().Err(err).Msg("Signing failed, retrying once")
	select {
	case <-time.After(h.retryDelay):
	case <-ctx.Done():
		return wallet.SignMessageResult{}, ctx.Err()
	}

	result, err = h.signer.SignMessage(ctx, req)
	if err != nil {
		if errors.Is(err, market.ErrUserRejected) {
			return wallet.SignMessageResult{}, err
		}
		return wallet.SignMessageResult{}, market.WrapE(market.ReasonWalletUnavailable, err, "signing failed twice")
	}
	return result, nil
}

func (h *Handshake) acquire(address string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inFlight[address] {
		return false
	}
	h.inFlight[address] = true
	return true
}

func (h *Handshake) release(address string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inFlight, address)
}
