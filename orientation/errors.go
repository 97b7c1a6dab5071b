package orientation

import "errors"

// Sentinel errors for orientation configuration.
// These errors enable reliable error classification using errors.Is().
var (
	// ErrInvalidAxisConfiguration indicates an AxesConfiguration that does
	// not describe three distinct, properly signed rotation axes.
	ErrInvalidAxisConfiguration = errors.New("invalid axis configuration")

	// ErrInvalidEulerOrder indicates an Order value outside the six
	// supported rotation orders.
	ErrInvalidEulerOrder = errors.New("invalid euler order")
)
