package txn

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/kashguard/go-market-client/internal/market"
	"github.com/kashguard/go-market-client/internal/wallet"
	"github.com/rs/zerolog"
)

// Submitter is the slice of the wallet the orchestrator needs.
type Submitter interface {
	Account() (wallet.Account, error)
	SignAndSubmitTransaction(ctx context.Context, req wallet.SubmitRequest) (wallet.SubmitResult, error)
}

// ChainWaiter observes on-chain inclusion.
type ChainWaiter interface {
	WaitForTransaction(ctx context.Context, hash string) (*TxResult, error)
}

// PrepareResult is what an action's prepare step yields. Either Intent is
// set (two-phase flow) or Immediate is set (the backend already applied the
// mutation itself, e.g. a random mint it executed server-side).
type PrepareResult struct {
	Intent    *market.TransactionIntent
	Immediate *ImmediateResult
}

// ImmediateResult is a pre-applied backend response; no wallet call and no
// confirm call happen for it.
type ImmediateResult struct {
	TransactionHash string
	TokenIndex      *uint64
	Metadata        json.RawMessage
}

// Action describes one mutating marketplace operation for the lifecycle.
type Action struct {
	// Name identifies the operation in logs and failure messages.
	Name string

	// EntityKey scopes mutual exclusion: no two actions with the same key
	// may have overlapping in-flight lifecycles.
	EntityKey string

	Prepare func(ctx context.Context) (*PrepareResult, error)
	Confirm func(ctx context.Context, trackingID string, c market.Confirmation) error

	// Refresh re-fetches authoritative backend state after confirm. Best
	// effort: a refresh failure is logged, not returned.
	Refresh func(ctx context.Context) error
}

// Outcome is the terminal success state of one lifecycle run.
type Outcome struct {
	TrackingID      string
	TransactionHash string
	BlockHeight     uint64
	GasUsed         uint64
	Immediate       bool
	TokenIndex      *uint64
}

// Orchestrator runs the two-phase lifecycle shared by every mutating
// action: prepare on the server, normalize, sign-and-submit through the
// wallet, await on-chain inclusion, confirm on the server, refresh.
type Orchestrator struct {
	wallet         Submitter
	chain          ChainWaiter
	signingTimeout time.Duration
	log            zerolog.Logger

	mu        sync.Mutex
	inFlight  map[string]struct{}
	submitted map[string]string // trackingID -> hash, guards double submission
}

const defaultSigningTimeout = 30 * time.Second

func NewOrchestrator(w Submitter, chain ChainWaiter, signingTimeout time.Duration, log zerolog.Logger) *Orchestrator {
	if signingTimeout <= 0 {
		signingTimeout = defaultSigningTimeout
	}
	return &Orchestrator{
		wallet:         w,
		chain:          chain,
		signingTimeout: signingTimeout,
		log:            log,
		inFlight:       make(map[string]struct{}),
		submitted:      make(map[string]string),
	}
}

// Run executes one action end to end. Submit always precedes confirm, a
// confirm call is only ever made with a locally observed hash, and VM
// failure skips confirm entirely.
func (o *Orchestrator) Run(ctx context.Context, act Action) (*Outcome, error) {
	if err := o.acquire(act.EntityKey); err != nil {
		return nil, err
	}
	defer o.release(act.EntityKey)

	log := o.log.With().Str("action", act.Name).Str("entity", act.EntityKey).Logger()

	// 1. Prepare.
	prep, err := act.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	if prep.Immediate != nil {
		// The backend executed the transaction itself; its response is
		// final state and there is nothing to confirm.
		log.Info().Str("hash", prep.Immediate.TransactionHash).Msg("Action applied by backend, skipping confirm")
		o.refresh(ctx, act, log)
		return &Outcome{
			TransactionHash: prep.Immediate.TransactionHash,
			TokenIndex:      prep.Immediate.TokenIndex,
			Immediate:       true,
		}, nil
	}

	intent := prep.Intent
	if intent == nil || intent.TrackingID == "" {
		return nil, market.E(market.ReasonBackendRejected, "prepare response carries neither an intent nor a final transaction")
	}
	if hash := o.submittedHash(intent.TrackingID); hash != "" {
		return nil, market.E(market.ReasonActionInFlight,
			"a transaction (%s) was already submitted for tracking id %s", hash, intent.TrackingID)
	}

	// 2. Normalize, with the connected account as sender.
	account, err := o.wallet.Account()
	if err != nil {
		return nil, market.WrapE(market.ReasonWalletUnavailable, err, "no connected wallet account")
	}
	entry, sender, err := NormalizePayload(intent.Meta, account.Address)
	if err != nil {
		log.Error().Err(err).RawJSON("meta", intent.Meta).Msg("Failed to normalize transaction metadata")
		return nil, err
	}

	// 3. Sign and submit, bounded by the signing timeout. The wallet popup
	// cannot be cancelled, so the losing goroutine is left to finish on
	// its own; its result is discarded.
	submit, err := o.signAndSubmit(ctx, wallet.SubmitRequest{Sender: sender, Data: entry})
	if err != nil {
		return nil, err
	}
	o.recordSubmitted(intent.TrackingID, submit.Hash)
	log.Info().Str("tracking_id", intent.TrackingID).Str("hash", submit.Hash).Msg("Transaction submitted")

	// 4. Await inclusion.
	result, err := o.chain.WaitForTransaction(ctx, submit.Hash)
	if err != nil {
		return nil, &market.Error{
			Reason:  market.ReasonConfirmFailed,
			Message: "transaction submitted but inclusion was not observed: " + err.Error(),
			TxHash:  submit.Hash,
		}
	}
	if !result.Success {
		log.Warn().Str("hash", submit.Hash).Str("vm_status", result.VMStatus).Msg("Transaction failed on-chain")
		return nil, &market.Error{
			Reason:  market.ReasonChainExecutionFailed,
			Message: result.VMStatus,
			TxHash:  submit.Hash,
		}
	}

	// 5. Confirm, retried once on transport error only. The trackingID
	// scopes the call server-side, so a duplicate confirm is safe; a
	// second chain submission is not, and is prevented by the ledger
	// above.
	confirmation := market.Confirmation{
		TransactionHash: submit.Hash,
		BlockNumber:     &result.BlockHeight,
		GasUsed:         &result.GasUsed,
	}
	if err := o.confirmWithRetry(ctx, act, intent.TrackingID, confirmation, log); err != nil {
		return nil, err
	}

	// 6. Refresh authoritative state; local state is never ground truth.
	o.refresh(ctx, act, log)

	return &Outcome{
		TrackingID:      intent.TrackingID,
		TransactionHash: submit.Hash,
		BlockHeight:     result.BlockHeight,
		GasUsed:         result.GasUsed,
	}, nil
}

func (o *Orchestrator) signAndSubmit(ctx context.Context, req wallet.SubmitRequest) (wallet.SubmitResult, error) {
	type out struct {
		res wallet.SubmitResult
		err error
	}
	ch := make(chan out, 1)
	go func() {
		res, err := o.wallet.SignAndSubmitTransaction(ctx, req)
		ch <- out{res: res, err: err}
	}()

	timer := time.NewTimer(o.signingTimeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		// Typed wallet failures (rejection, adapter missing) pass through
		// unchanged; transport errors are surfaced as-is.
		return result.res, result.err
	case <-timer.C:
		return wallet.SubmitResult{}, market.E(market.ReasonSigningTimeout, "no wallet response within %s", o.signingTimeout)
	case <-ctx.Done():
		return wallet.SubmitResult{}, market.WrapE(market.ReasonSigningTimeout, ctx.Err(), "signing aborted")
	}
}

func (o *Orchestrator) confirmWithRetry(ctx context.Context, act Action, trackingID string, c market.Confirmation, log zerolog.Logger) error {
	err := act.Confirm(ctx, trackingID, c)
	if err == nil {
		return nil
	}
	// Backend rejections are authoritative; only transport errors get the
	// single retry.
	if e := (*market.Error)(nil); errors.As(err, &e) && e.Reason == market.ReasonBackendRejected {
		return &market.Error{Reason: market.ReasonConfirmFailed, Message: e.Message, TxHash: c.TransactionHash}
	}
	log.Warn().Err(err).Str("tracking_id", trackingID).Msg("Confirm failed, retrying once")
	if err := act.Confirm(ctx, trackingID, c); err != nil {
		return &market.Error{
			Reason:  market.ReasonConfirmFailed,
			Message: err.Error(),
			TxHash:  c.TransactionHash,
		}
	}
	return nil
}

func (o *Orchestrator) refresh(ctx context.Context, act Action, log zerolog.Logger) {
	if act.Refresh == nil {
		return
	}
	if err := act.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh state after action")
	}
}

func (o *Orchestrator) acquire(entityKey string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[entityKey]; busy {
		return market.E(market.ReasonActionInFlight, "another action on %s is still in flight", entityKey)
	}
	o.inFlight[entityKey] = struct{}{}
	return nil
}

func (o *Orchestrator) release(entityKey string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, entityKey)
}

func (o *Orchestrator) recordSubmitted(trackingID, hash string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitted[trackingID] = hash
}

func (o *Orchestrator) submittedHash(trackingID string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submitted[trackingID]
}
