package datasync

import "errors"

// Sentinel errors for transmission results.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrNotConnected indicates a transmit was attempted with no active
	// mixer session bound to the engine.
	ErrNotConnected = errors.New("no active session to transmit to")
)
