package datasync

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/spatialmix/orientation"
	"github.com/opd-ai/spatialmix/spatial"
)

// DefaultGainHistoryLimit caps the transmitted per-peer gain history. When
// the history exceeds the cap it is bulk-cleared with a warning rather than
// evicted entry by entry.
const DefaultGainHistoryLimit = 1000

// Transmitter is the minimal interface the engine needs from the mixer
// session: a raw send primitive for one delta. It returns the raw payload
// actually written to the wire.
type Transmitter interface {
	SendDelta(delta *spatial.Delta) (string, error)
}

// Result is the synchronous outcome of a transmit call.
type Result struct {
	// Success is false only when a send was attempted and failed, or no
	// session was bound.
	Success bool

	// Deferred is true when the call landed inside an open rate-limit
	// window and was coalesced into the pending flush instead of sending.
	Deferred bool

	// RawData is the payload written to the wire, empty when nothing was
	// sent (deferred call or empty delta).
	RawData string

	// Err carries the failure when Success is false.
	Err error
}

// Engine merges partial updates into the local spatial state and
// synchronizes it to the mixer under the rate limit.
//
// All methods are safe for concurrent use. The engine holds at most one
// live rate-limit timer.
type Engine struct {
	mu sync.Mutex

	order orientation.Order
	axes  orientation.AxesConfiguration

	state spatial.State
	last  spatial.Snapshot

	interval    time.Duration
	timer       *time.Timer
	timerActive bool
	flushWanted bool

	tx Transmitter

	gainHistoryLimit int
}

// NewEngine creates an engine that coalesces transmissions into windows of
// the given interval and converts Euler orientations with the given order
// and axis configuration.
func NewEngine(interval time.Duration, order orientation.Order, axes orientation.AxesConfiguration) *Engine {
	return &Engine{
		order:            order,
		axes:             axes,
		interval:         interval,
		gainHistoryLimit: DefaultGainHistoryLimit,
	}
}

// Bind attaches the transmitter used for sends. Called when the connection
// manager reaches the connected state.
func (e *Engine) Bind(tx Transmitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tx = tx
}

// Unbind detaches the transmitter; subsequent transmits fail with
// ErrNotConnected.
func (e *Engine) Unbind() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tx = nil
}

// Update merges a partial update into the current state without
// transmitting.
func (e *Engine) Update(u spatial.Update) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Apply(u, e.order, e.axes)
}

// UpdateAndTransmit merges a partial update and then transmits under the
// rate limit.
func (e *Engine) UpdateAndTransmit(u spatial.Update) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Apply(u, e.order, e.axes)
	return e.transmitLocked(false)
}

// QueuePeerGain records a one-shot gain adjustment for a single peer and
// transmits under the rate limit.
func (e *Engine) QueuePeerGain(visitIDHash string, gain float64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.QueueOtherUserGain(visitIDHash, gain)
	return e.transmitLocked(false)
}

// QueuePeerGains records one-shot gain adjustments for several peers and
// transmits under the rate limit.
func (e *Engine) QueuePeerGains(gains map[string]float64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, g := range gains {
		e.state.QueueOtherUserGain(id, g)
	}
	return e.transmitLocked(false)
}

// Transmit sends the current delta. When forced is false the call respects
// the rate limit and may be coalesced; when forced it always sends
// immediately.
func (e *Engine) Transmit(forced bool) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transmitLocked(forced)
}

// Flush forgets the last-transmitted snapshot and force-transmits the full
// current state. The connection manager calls this when a session reaches
// the connected state so the fresh mixer learns everything at once.
func (e *Engine) Flush() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last.Reset()
	return e.transmitLocked(true)
}

// Reset cancels any pending coalesced flush and forgets the
// last-transmitted snapshot. Called on disconnect.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timerActive = false
	e.flushWanted = false
	e.last.Reset()
}

func (e *Engine) transmitLocked(forced bool) Result {
	if e.timerActive && !forced {
		e.flushWanted = true
		logrus.WithFields(logrus.Fields{
			"function": "transmitLocked",
		}).Debug("Transmit inside rate-limit window, coalescing")
		return Result{Success: true, Deferred: true}
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timerActive = false
	e.flushWanted = false
	if !forced {
		e.timer = time.AfterFunc(e.interval, e.onWindowElapsed)
		e.timerActive = true
	}

	delta := spatial.Diff(&e.state, &e.last)
	if delta.IsEmpty() {
		return Result{Success: true}
	}
	if e.tx == nil {
		return Result{Success: false, Err: ErrNotConnected}
	}

	raw, err := e.tx.SendDelta(delta)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "transmitLocked",
			"error":    err,
		}).Error("Delta transmission failed")
		return Result{Success: false, Err: fmt.Errorf("delta transmission failed: %w", err)}
	}

	e.last.Absorb(delta)
	// Queued peer gains are one-shot intents, not persistent state.
	e.state.OtherUserGains = nil
	if len(e.last.GainHistory) > e.gainHistoryLimit {
		logrus.WithFields(logrus.Fields{
			"function": "transmitLocked",
			"entries":  len(e.last.GainHistory),
			"limit":    e.gainHistoryLimit,
		}).Warn("Transmitted gain history exceeded cap, clearing")
		e.last.GainHistory = nil
	}

	return Result{Success: true, RawData: raw}
}

// onWindowElapsed is the rate-limit timer callback. If a flush was desired
// during the window it force-transmits the state as it stands now, so one
// window of update pressure yields exactly one send with the newest values.
func (e *Engine) onWindowElapsed() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timerActive = false
	if !e.flushWanted {
		return
	}
	e.flushWanted = false
	e.transmitLocked(true)
}
