package mixer

import "errors"

// Sentinel errors for mixer session operations.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrInvalidICEConfiguration indicates a malformed STUN/TURN override.
	// Detected at construction; the session is unusable.
	ErrInvalidICEConfiguration = errors.New("invalid STUN/TURN configuration")

	// ErrNoActiveSession indicates a send was attempted before the session
	// connected or after it closed.
	ErrNoActiveSession = errors.New("no active mixer session")

	// ErrAttemptTimedOut indicates a single connection attempt exceeded
	// its timeout.
	ErrAttemptTimedOut = errors.New("connection attempt timed out")

	// ErrSignalingClosed indicates the signaling channel closed before the
	// handshake completed.
	ErrSignalingClosed = errors.New("signaling channel closed")

	// ErrHandshakeAborted indicates a local disconnect arrived while the
	// handshake was still in flight; the attempt tore itself down instead of
	// committing.
	ErrHandshakeAborted = errors.New("handshake aborted by local disconnect")
)
