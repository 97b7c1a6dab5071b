package connection

import "time"

// eventKind enumerates the triggers the machine reacts to.
type eventKind uint8

const (
	// eventConnectRequested: the application called Connect from the
	// disconnected state.
	eventConnectRequested eventKind = iota
	// eventDisconnectRequested: the application called Disconnect.
	eventDisconnectRequested
	// eventAttemptSucceeded: the in-flight session attempt completed.
	eventAttemptSucceeded
	// eventAttemptFailed: the in-flight session attempt failed (includes
	// per-attempt timeouts, indistinguishable at this layer).
	eventAttemptFailed
	// eventSessionDropped: an established session reported a drop.
	eventSessionDropped
	// eventRetryPauseElapsed: the pause between retry attempts elapsed.
	eventRetryPauseElapsed
	// eventRetryWindowExpired: the overall retry budget ran out.
	eventRetryWindowExpired
	// eventDisconnectComplete: the session confirmed teardown.
	eventDisconnectComplete
)

// event is one machine trigger plus its payload.
type event struct {
	kind        eventKind
	reason      string
	err         error
	unavailable bool
}

// effectKind enumerates the side effects the machine requests from the
// driver. The machine itself performs none of them.
type effectKind uint8

const (
	// fxBeginAttempt starts one session connection attempt.
	fxBeginAttempt effectKind = iota
	// fxBeginDisconnect starts the session teardown.
	fxBeginDisconnect
	// fxStartRetryWindow arms the overall retry budget timer.
	fxStartRetryWindow
	// fxSchedulePause arms the pause timer before the next attempt.
	fxSchedulePause
	// fxCancelTimers stops the retry-window and pause timers.
	fxCancelTimers
	// fxNotify reports an externally observable state (the driver
	// suppresses duplicates).
	fxNotify
	// fxResolvePending settles the pending open successfully.
	fxResolvePending
	// fxRejectPending settles the pending open with an error.
	fxRejectPending
	// fxSupersedePending settles the pending open with ErrSuperseded.
	fxSupersedePending
	// fxFlushSync binds the sync engine to the session and force-flushes
	// the full state.
	fxFlushSync
	// fxUnbindSync detaches the sync engine from the session.
	fxUnbindSync
	// fxResetSync detaches the sync engine and resets its snapshot.
	fxResetSync
	// fxTeardownSession tears the session down without waiting (retry
	// budget expiry).
	fxTeardownSession
)

// effect is one requested side effect.
type effect struct {
	kind   effectKind
	state  State
	reason string
	err    error
	window time.Duration
}

func notify(s State, reason string) effect {
	return effect{kind: fxNotify, state: s, reason: reason}
}

// machine is the pure state of the connection lifecycle. It is a value:
// reduce returns a new machine rather than mutating.
type machine struct {
	state State
	// retrying is true while a retry window is armed, i.e. further attempt
	// failures schedule another attempt instead of finalizing.
	retrying bool
	policy   RetryPolicy
}

// reduce is the pure transition function: (state, event) -> (state,
// effects). Events that make no sense in the current state are ignored,
// which is what makes overlapping asynchronous callbacks safe to replay
// into the machine.
func (m machine) reduce(ev event) (machine, []effect) {
	switch ev.kind {
	case eventConnectRequested:
		return m.onConnectRequested()
	case eventDisconnectRequested:
		return m.onDisconnectRequested()
	case eventAttemptSucceeded:
		return m.onAttemptSucceeded()
	case eventAttemptFailed:
		return m.onAttemptFailed(ev)
	case eventSessionDropped:
		return m.onSessionDropped(ev)
	case eventRetryPauseElapsed:
		if m.state == StateConnecting || m.state == StateReconnecting {
			return m, []effect{{kind: fxBeginAttempt}}
		}
		return m, nil
	case eventRetryWindowExpired:
		return m.onRetryWindowExpired()
	case eventDisconnectComplete:
		if m.state == StateDisconnecting {
			m.state = StateDisconnected
			return m, []effect{
				{kind: fxResetSync},
				notify(StateDisconnected, ev.reason),
			}
		}
		return m, nil
	}
	return m, nil
}

func (m machine) onConnectRequested() (machine, []effect) {
	if m.state != StateDisconnected {
		return m, nil
	}
	m.state = StateConnecting
	fx := []effect{notify(StateConnecting, "")}
	if m.policy.AutoRetryInitialConnection {
		m.retrying = true
		fx = append(fx, effect{kind: fxStartRetryWindow, window: m.policy.initialWindow()})
	}
	fx = append(fx, effect{kind: fxBeginAttempt})
	return m, fx
}

func (m machine) onAttemptSucceeded() (machine, []effect) {
	if m.state != StateConnecting && m.state != StateReconnecting {
		return m, nil
	}
	m.state = StateConnected
	m.retrying = false
	return m, []effect{
		{kind: fxCancelTimers},
		{kind: fxFlushSync},
		{kind: fxResolvePending},
		notify(StateConnected, ""),
	}
}

func (m machine) onAttemptFailed(ev event) (machine, []effect) {
	if m.state != StateConnecting && m.state != StateReconnecting {
		return m, nil
	}
	if ev.unavailable {
		// Capacity exceeded short-circuits the retry path entirely.
		m.state = StateDisconnected
		m.retrying = false
		return m, []effect{
			{kind: fxCancelTimers},
			notify(StateUnavailable, ev.reason),
			notify(StateDisconnected, ev.reason),
			{kind: fxRejectPending, err: ev.err},
		}
	}
	if m.retrying {
		// The retry window is still open: pause, then try again in the
		// same state. The cause of the failure is deliberately not
		// inspected.
		return m, []effect{{kind: fxSchedulePause}}
	}
	m.state = StateDisconnected
	return m, []effect{
		{kind: fxCancelTimers},
		notify(StateFailed, ev.reason),
		notify(StateDisconnected, ev.reason),
		{kind: fxRejectPending, err: ev.err},
	}
}

func (m machine) onSessionDropped(ev event) (machine, []effect) {
	if m.state != StateConnected {
		return m, nil
	}
	if m.policy.AutoRetryOnDisconnect {
		m.state = StateReconnecting
		m.retrying = true
		return m, []effect{
			{kind: fxUnbindSync},
			notify(StateReconnecting, ev.reason),
			{kind: fxStartRetryWindow, window: m.policy.disconnectWindow()},
			{kind: fxBeginAttempt},
		}
	}
	m.state = StateDisconnected
	return m, []effect{
		{kind: fxUnbindSync},
		notify(StateFailed, ev.reason),
		notify(StateDisconnected, ev.reason),
	}
}

func (m machine) onRetryWindowExpired() (machine, []effect) {
	if m.state != StateConnecting && m.state != StateReconnecting {
		return m, nil
	}
	m.state = StateDisconnected
	m.retrying = false
	return m, []effect{
		{kind: fxCancelTimers},
		{kind: fxTeardownSession},
		notify(StateFailed, ErrRetriesExhausted.Error()),
		notify(StateDisconnected, ErrRetriesExhausted.Error()),
		{kind: fxRejectPending, err: ErrRetriesExhausted},
	}
}

func (m machine) onDisconnectRequested() (machine, []effect) {
	if m.state == StateDisconnected || m.state == StateDisconnecting {
		return m, nil
	}
	m.state = StateDisconnecting
	m.retrying = false
	return m, []effect{
		{kind: fxCancelTimers},
		{kind: fxUnbindSync},
		{kind: fxSupersedePending},
		notify(StateDisconnecting, ""),
		{kind: fxBeginDisconnect},
	}
}
