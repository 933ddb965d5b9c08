package market

import (
	"fmt"
)

// Reason discriminates the failure modes of the marketplace client. Every
// error that crosses a package boundary carries exactly one Reason so that
// callers can branch without string matching.
type Reason string

const (
	// Precondition failures - no network call was attempted.
	ReasonNotAuthenticated  Reason = "not_authenticated"
	ReasonMissingParameter  Reason = "missing_parameter"
	ReasonWalletUnavailable Reason = "wallet_unavailable"
	ReasonActionInFlight    Reason = "action_in_flight"

	// Wallet interaction failures.
	ReasonUserRejected   Reason = "user_rejected"
	ReasonSigningTimeout Reason = "signing_timeout"

	// Handshake failures.
	ReasonChallengeUnavailable Reason = "challenge_unavailable"
	ReasonVerifyRejected       Reason = "verify_rejected"
	ReasonHandshakeInFlight    Reason = "handshake_in_flight"

	// Normalizer failures.
	ReasonInvalidSignature           Reason = "invalid_signature"
	ReasonUnsupportedSignatureFormat Reason = "unsupported_signature_format"
	ReasonMissingFunctionIdentifier  Reason = "missing_function_identifier"
	ReasonMissingSender              Reason = "missing_sender"

	// Backend and chain failures.
	ReasonBackendRejected      Reason = "backend_rejected"
	ReasonChainExecutionFailed Reason = "chain_execution_failed"
	ReasonConfirmFailed        Reason = "confirm_failed"
)

// Error is the typed failure used across the client. It wraps an optional
// cause and is matchable with errors.Is against a bare &Error{Reason: ...}.
type Error struct {
	Reason  Reason
	Message string

	// TxHash is set on failures that happen after a transaction was
	// submitted, so the user never loses the reference.
	TxHash string

	cause error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Reason)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same Reason, so sentinel comparisons like
// errors.Is(err, &Error{Reason: ReasonUserRejected}) work regardless of the
// message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

// E builds a typed error.
func E(reason Reason, format string, args ...interface{}) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// WrapE builds a typed error around a cause.
func WrapE(reason Reason, cause error, format string, args ...interface{}) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Sentinels for errors.Is matching.
var (
	ErrNotAuthenticated  = &Error{Reason: ReasonNotAuthenticated}
	ErrUserRejected      = &Error{Reason: ReasonUserRejected}
	ErrSigningTimeout    = &Error{Reason: ReasonSigningTimeout}
	ErrHandshakeInFlight = &Error{Reason: ReasonHandshakeInFlight}
	ErrActionInFlight    = &Error{Reason: ReasonActionInFlight}
)

// UserMessage renders the failure for display. Partial failures after
// submission include the transaction hash so the user can verify manually.
func (e *Error) UserMessage() string {
	switch e.Reason {
	case ReasonNotAuthenticated:
		return "You are not signed in. Connect your wallet and log in first."
	case ReasonWalletUnavailable:
		return "Wallet is not available. Reload the application and reconnect."
	case ReasonUserRejected:
		return "Signature request was rejected in the wallet."
	case ReasonSigningTimeout:
		return "Signing timed out. Check for a hidden wallet popup and try again."
	case ReasonChallengeUnavailable:
		return "Could not obtain a login challenge from the server."
	case ReasonVerifyRejected:
		return "The server rejected the signed login proof."
	case ReasonChainExecutionFailed:
		if e.TxHash != "" {
			return fmt.Sprintf("Transaction %s failed on-chain: %s", e.TxHash, e.Message)
		}
		return fmt.Sprintf("Transaction failed on-chain: %s", e.Message)
	case ReasonConfirmFailed:
		if e.TxHash != "" {
			return fmt.Sprintf("Transaction %s was submitted but could not be confirmed with the server. Keep the hash and retry confirmation.", e.TxHash)
		}
		return "Transaction was submitted but could not be confirmed with the server."
	case ReasonBackendRejected:
		return fmt.Sprintf("Request rejected: %s", e.Message)
	default:
		return e.Error()
	}
}
