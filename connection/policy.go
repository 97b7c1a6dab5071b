package connection

import "time"

// RetryPolicy configures automatic retry behavior for both the initial
// connection and reconnection after a drop. It is immutable after
// construction.
type RetryPolicy struct {
	// AutoRetryInitialConnection enables retrying a failed first
	// connection until MaxSecondsRetryingInitial elapses.
	AutoRetryInitialConnection bool

	// MaxSecondsRetryingInitial is the overall budget for initial-
	// connection retries.
	MaxSecondsRetryingInitial float64

	// AutoRetryOnDisconnect enables reconnecting after an established
	// session drops, until MaxSecondsRetryingOnDisconnect elapses.
	AutoRetryOnDisconnect bool

	// MaxSecondsRetryingOnDisconnect is the overall budget for
	// reconnection retries.
	MaxSecondsRetryingOnDisconnect float64

	// PauseBetweenRetries is the delay between one failed attempt and the
	// next.
	PauseBetweenRetries time.Duration

	// TimeoutPerAttempt bounds each individual attempt, independent of the
	// overall retry budget. Enforced by the mixer session and reported to
	// the machine as an ordinary attempt failure.
	TimeoutPerAttempt time.Duration
}

// DefaultRetryPolicy returns the retry configuration used when the
// application supplies none: no automatic retries, a 15 second initial
// budget and a 60 second reconnect budget when enabled, half a second
// between attempts, five seconds per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		AutoRetryInitialConnection:     false,
		MaxSecondsRetryingInitial:      15,
		AutoRetryOnDisconnect:          false,
		MaxSecondsRetryingOnDisconnect: 60,
		PauseBetweenRetries:            500 * time.Millisecond,
		TimeoutPerAttempt:              5 * time.Second,
	}
}

// initialWindow converts the initial retry budget to a timer duration at
// cycle start.
func (p RetryPolicy) initialWindow() time.Duration {
	return time.Duration(p.MaxSecondsRetryingInitial * float64(time.Second))
}

// disconnectWindow converts the reconnect retry budget to a timer duration
// at cycle start.
func (p RetryPolicy) disconnectWindow() time.Duration {
	return time.Duration(p.MaxSecondsRetryingOnDisconnect * float64(time.Second))
}
