package connection

import "fmt"

// State is the externally observable connection lifecycle state. Exactly
// one value is held by the manager at a time and transitions happen only
// through the machine.
type State uint8

const (
	// StateDisconnected means no session exists and none is being opened.
	StateDisconnected State = iota
	// StateConnecting means the initial connection attempt (and its
	// retries, if enabled) is in progress.
	StateConnecting
	// StateConnected means the session is established and deltas flow.
	StateConnected
	// StateReconnecting means an established session dropped and automatic
	// reconnection is in progress.
	StateReconnecting
	// StateDisconnecting means an application-requested teardown is in
	// progress.
	StateDisconnecting
	// StateFailed is the terminal failure notification; it is always
	// followed by StateDisconnected.
	StateFailed
	// StateUnavailable means the mixer refused the connection because the
	// space is at capacity; always followed by StateDisconnected and never
	// retried on the same token.
	StateUnavailable
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateReconnecting:
		return "Reconnecting"
	case StateDisconnecting:
		return "Disconnecting"
	case StateFailed:
		return "Failed"
	case StateUnavailable:
		return "Unavailable"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}
