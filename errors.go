package spatialmix

import "errors"

// Sentinel errors for the communicator facade.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrSubscriptionsDisabled indicates AddUserDataSubscription was
	// called on a communicator configured not to stream peer data.
	ErrSubscriptionsDisabled = errors.New("peer data streaming is disabled for this communicator")
)
