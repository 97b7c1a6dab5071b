package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/spatialmix/datasync"
)

// ConnectParams carries everything one session attempt needs. The manager
// reuses the same params for every retry of a cycle.
type ConnectParams struct {
	// AuthToken is the JWT identifying the user and the space to join.
	AuthToken string

	// SignalingURL is the websocket address of the mixer's signaling
	// endpoint.
	SignalingURL string

	// Timeout bounds this single attempt. Zero lets the session apply its
	// own default.
	Timeout time.Duration

	// StreamUserData asks the mixer to push other participants' data.
	StreamUserData bool
}

// InitResponse is the mixer's answer to a successful session
// initialization.
type InitResponse struct {
	// VisitIDHash is the server-issued opaque identifier for this visit.
	VisitIDHash string

	// ProvidedUserID echoes the identity from the auth token, if any.
	ProvidedUserID string

	// SpaceID identifies the space the token admitted us to.
	SpaceID string
}

// MixerSession is the collaborator interface the manager drives. Connect
// blocks for at most the attempt timeout and reports capacity refusals by
// wrapping ErrCapacityExceeded; Disconnect blocks until teardown is
// confirmed. The embedded Transmitter is handed to the sync engine while
// the session is connected.
type MixerSession interface {
	datasync.Transmitter

	Connect(params ConnectParams) (*InitResponse, error)
	Disconnect() (string, error)
}

// StateChangeFunc receives externally observable state transitions. The
// reason is empty for routine transitions and carries the failure message
// otherwise.
type StateChangeFunc func(state State, reason string)

// Manager drives the connection lifecycle machine.
//
// It owns the two timer handles (retry window, retry pause), the single
// pending-open completion, and the binding between the sync engine and the
// session. All machine events funnel through one mutex, and user callbacks
// are invoked outside it.
type Manager struct {
	mu sync.Mutex

	session MixerSession
	engine  *datasync.Engine

	m machine

	pending  *completion
	params   ConnectParams
	initResp *InitResponse

	retryTimer *time.Timer
	pauseTimer *time.Timer

	// seq invalidates in-flight attempt goroutines: a result is dropped
	// unless its sequence number is still current.
	seq uint64

	lastNotified   State
	onStateChanged StateChangeFunc

	discWaiters []chan string
}

// NewManager creates a manager over the given session and sync engine.
func NewManager(session MixerSession, engine *datasync.Engine, policy RetryPolicy) *Manager {
	return &Manager{
		session:      session,
		engine:       engine,
		m:            machine{state: StateDisconnected, policy: policy},
		lastNotified: StateDisconnected,
	}
}

// OnStateChanged registers the state-change callback. It fires only when
// the externally observable state actually changes; a repeated identical
// state is suppressed.
func (mgr *Manager) OnStateChanged(cb StateChangeFunc) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.onStateChanged = cb
}

// State returns the current lifecycle state.
func (mgr *Manager) State() State {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.m.state
}

// Connect opens the session and blocks until the entire retry sequence
// settles. Calling it while already connected returns the cached init
// response immediately without a new attempt; calling it while an attempt
// is in progress returns ErrAlreadyConnecting and never creates a second
// pending open.
func (mgr *Manager) Connect(ctx context.Context, params ConnectParams) (*InitResponse, error) {
	mgr.mu.Lock()
	switch mgr.m.state {
	case StateConnected:
		resp := mgr.initResp
		mgr.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "Connect",
		}).Debug("Connect called while already connected, no-op")
		return resp, nil
	case StateConnecting, StateReconnecting:
		mgr.mu.Unlock()
		return nil, ErrAlreadyConnecting
	case StateDisconnecting:
		mgr.mu.Unlock()
		return nil, ErrDisconnectInProgress
	}

	mgr.params = params
	pending := newCompletion()
	mgr.pending = pending
	deferred := mgr.applyLocked(event{kind: eventConnectRequested})
	mgr.mu.Unlock()
	run(deferred)

	return pending.wait(ctx)
}

// Disconnect tears the session down and blocks until the machine reaches
// Disconnected. It always succeeds; calling it while already disconnected
// or disconnecting is a no-op success.
func (mgr *Manager) Disconnect(ctx context.Context) (string, error) {
	mgr.mu.Lock()
	if mgr.m.state == StateDisconnected {
		mgr.mu.Unlock()
		return "already disconnected", nil
	}
	waiter := make(chan string, 1)
	mgr.discWaiters = append(mgr.discWaiters, waiter)
	var deferred []func()
	if mgr.m.state != StateDisconnecting {
		deferred = mgr.applyLocked(event{kind: eventDisconnectRequested})
	}
	mgr.mu.Unlock()
	run(deferred)

	select {
	case msg := <-waiter:
		return msg, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// HandleSessionDropped is wired to the session's drop callback. Drops are
// only meaningful while connected; attempt outcomes arrive through the
// blocking Connect return instead, so anything else is ignored.
func (mgr *Manager) HandleSessionDropped(reason string) {
	mgr.mu.Lock()
	if mgr.m.state != StateConnected {
		mgr.mu.Unlock()
		return
	}
	deferred := mgr.applyLocked(event{kind: eventSessionDropped, reason: reason})
	mgr.mu.Unlock()
	run(deferred)
}

// dispatch feeds one event through the machine and runs the deferred
// callbacks outside the lock.
func (mgr *Manager) dispatch(ev event) {
	mgr.mu.Lock()
	deferred := mgr.applyLocked(ev)
	mgr.mu.Unlock()
	run(deferred)
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// applyLocked reduces one event and executes its effects. Timer and
// bookkeeping mutations happen inline; anything that may re-enter the
// manager or call application code is returned as a deferred closure so it
// runs outside the lock, in effect order.
func (mgr *Manager) applyLocked(ev event) []func() {
	next, effects := mgr.m.reduce(ev)
	if next.state != mgr.m.state {
		logrus.WithFields(logrus.Fields{
			"function": "applyLocked",
			"from":     mgr.m.state,
			"to":       next.state,
			"event":    ev.kind,
		}).Debug("Connection state transition")
	}
	mgr.m = next

	var deferred []func()
	for _, fx := range effects {
		switch fx.kind {
		case fxBeginAttempt:
			mgr.seq++
			seq := mgr.seq
			params := mgr.params
			go mgr.runAttempt(params, seq)

		case fxBeginDisconnect:
			mgr.seq++
			go mgr.runDisconnect()

		case fxStartRetryWindow:
			if mgr.retryTimer != nil {
				mgr.retryTimer.Stop()
			}
			mgr.retryTimer = time.AfterFunc(fx.window, func() {
				mgr.dispatch(event{kind: eventRetryWindowExpired})
			})

		case fxSchedulePause:
			if mgr.pauseTimer != nil {
				mgr.pauseTimer.Stop()
			}
			mgr.pauseTimer = time.AfterFunc(mgr.m.policy.PauseBetweenRetries, func() {
				mgr.dispatch(event{kind: eventRetryPauseElapsed})
			})

		case fxCancelTimers:
			if mgr.retryTimer != nil {
				mgr.retryTimer.Stop()
				mgr.retryTimer = nil
			}
			if mgr.pauseTimer != nil {
				mgr.pauseTimer.Stop()
				mgr.pauseTimer = nil
			}

		case fxNotify:
			deferred = append(deferred, mgr.notifyLocked(fx.state, fx.reason)...)

		case fxResolvePending:
			if p := mgr.pending; p != nil {
				mgr.pending = nil
				resp := mgr.initResp
				deferred = append(deferred, func() { p.settle(resp, nil) })
			}

		case fxRejectPending:
			if p := mgr.pending; p != nil {
				mgr.pending = nil
				err := fx.err
				deferred = append(deferred, func() { p.settle(nil, err) })
			}

		case fxSupersedePending:
			if p := mgr.pending; p != nil {
				mgr.pending = nil
				deferred = append(deferred, func() { p.supersede() })
			}

		case fxFlushSync:
			engine := mgr.engine
			session := mgr.session
			deferred = append(deferred, func() {
				engine.Bind(session)
				engine.Flush()
			})

		case fxUnbindSync:
			engine := mgr.engine
			deferred = append(deferred, func() { engine.Unbind() })

		case fxResetSync:
			engine := mgr.engine
			deferred = append(deferred, func() {
				engine.Unbind()
				engine.Reset()
			})

		case fxTeardownSession:
			session := mgr.session
			go func() {
				if _, err := session.Disconnect(); err != nil {
					logrus.WithFields(logrus.Fields{
						"function": "applyLocked",
						"error":    err,
					}).Debug("Session teardown after retry expiry reported an error")
				}
			}()
		}
	}
	return deferred
}

// notifyLocked deduplicates observable state notifications and releases
// disconnect waiters when the machine settles in Disconnected.
func (mgr *Manager) notifyLocked(s State, reason string) []func() {
	if s == mgr.lastNotified {
		return nil
	}
	mgr.lastNotified = s

	var deferred []func()
	if cb := mgr.onStateChanged; cb != nil {
		deferred = append(deferred, func() { cb(s, reason) })
	}
	if s == StateDisconnected {
		waiters := mgr.discWaiters
		mgr.discWaiters = nil
		msg := reason
		if msg == "" {
			msg = "disconnected"
		}
		deferred = append(deferred, func() {
			for _, w := range waiters {
				w <- msg
			}
		})
	}
	return deferred
}

// runAttempt performs one session connection attempt and feeds the result
// back as a machine event, unless the attempt was invalidated meanwhile.
func (mgr *Manager) runAttempt(params ConnectParams, seq uint64) {
	resp, err := mgr.session.Connect(params)

	mgr.mu.Lock()
	if seq != mgr.seq {
		mgr.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "runAttempt",
		}).Debug("Stale connection attempt result dropped")
		return
	}
	var deferred []func()
	if err != nil {
		deferred = mgr.applyLocked(event{
			kind:        eventAttemptFailed,
			reason:      err.Error(),
			err:         err,
			unavailable: errors.Is(err, ErrCapacityExceeded),
		})
	} else {
		mgr.initResp = resp
		deferred = mgr.applyLocked(event{kind: eventAttemptSucceeded})
	}
	mgr.mu.Unlock()
	run(deferred)
}

// runDisconnect performs the session teardown and reports completion.
func (mgr *Manager) runDisconnect() {
	msg, err := mgr.session.Disconnect()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "runDisconnect",
			"error":    err,
		}).Warn("Session disconnect reported an error")
		msg = "disconnected"
	}
	mgr.dispatch(event{kind: eventDisconnectComplete, reason: msg})
}
