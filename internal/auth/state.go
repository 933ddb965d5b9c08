package auth

// State is the explicit handshake state. Transitions are linear with one
// terminal failure state; a failed handshake restarts from StateConnected.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateChallengeIssued
	StateSigned
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateChallengeIssued:
		return "challenge_issued"
	case StateSigned:
		return "signed"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
