package connection

import "errors"

// Sentinel errors for connection lifecycle operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrAlreadyConnecting indicates Connect was called while a connection
	// attempt was already in progress. The in-flight attempt is unaffected.
	ErrAlreadyConnecting = errors.New("connection attempt already in progress")

	// ErrDisconnectInProgress indicates Connect was called while a
	// teardown was still completing.
	ErrDisconnectInProgress = errors.New("disconnect in progress")

	// ErrSuperseded settles a pending Connect that was cut short by an
	// application-requested disconnect.
	ErrSuperseded = errors.New("connection attempt superseded by disconnect")

	// ErrRetriesExhausted is the synthetic failure reported when the retry
	// window expires without a successful attempt.
	ErrRetriesExhausted = errors.New("retry attempts unsuccessful")

	// ErrCapacityExceeded indicates the mixer refused the connection
	// because the space is full. It is never retried on the same token.
	ErrCapacityExceeded = errors.New("mixer capacity exceeded")
)
