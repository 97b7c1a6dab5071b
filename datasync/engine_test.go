package datasync

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/spatialmix/orientation"
	"github.com/opd-ai/spatialmix/spatial"
)

// mockTransmitter records every delta it is asked to send and can be
// scripted to fail.
type mockTransmitter struct {
	mu     sync.Mutex
	sent   []*spatial.Delta
	err    error
	raw    string
	called int
}

func (m *mockTransmitter) SendDelta(d *spatial.Delta) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.called++
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, d)
	return m.raw, nil
}

func (m *mockTransmitter) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockTransmitter) lastSent() *spatial.Delta {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

func newTestEngine(interval time.Duration) (*Engine, *mockTransmitter) {
	e := NewEngine(interval, orientation.OrderYawPitchRoll, orientation.DefaultAxesConfiguration())
	tx := &mockTransmitter{raw: "ok"}
	e.Bind(tx)
	return e, tx
}

func f(v float64) *float64 { return &v }

// TestFirstTransmitSendsImmediately verifies that the first call outside a
// window is not deferred.
func TestFirstTransmitSendsImmediately(t *testing.T) {
	e, tx := newTestEngine(time.Hour)

	res := e.UpdateAndTransmit(spatial.Update{Gain: f(0.5)})
	require.True(t, res.Success)
	assert.False(t, res.Deferred)
	assert.Equal(t, "ok", res.RawData)
	require.Equal(t, 1, tx.sendCount())
	assert.Equal(t, 0.5, *tx.lastSent().Gain)
}

// TestRateLimitCoalescesToOneSend verifies that multiple updates inside one
// window yield exactly one trailing send carrying the newest values.
func TestRateLimitCoalescesToOneSend(t *testing.T) {
	e, tx := newTestEngine(30 * time.Millisecond)

	first := e.UpdateAndTransmit(spatial.Update{Position: &spatial.Point3D{X: 1}})
	require.True(t, first.Success)
	require.False(t, first.Deferred)

	second := e.UpdateAndTransmit(spatial.Update{Position: &spatial.Point3D{X: 2}})
	third := e.UpdateAndTransmit(spatial.Update{Position: &spatial.Point3D{X: 3}})
	assert.True(t, second.Deferred)
	assert.True(t, third.Deferred)
	assert.Equal(t, 1, tx.sendCount(), "coalesced calls must not send")

	assert.Eventually(t, func() bool { return tx.sendCount() == 2 },
		500*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 3.0, tx.lastSent().Position.X, "trailing send must carry the newest value")

	// The window is spent; no further sends arrive.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 2, tx.sendCount())
}

// TestWindowWithoutPressureSendsNothing verifies that an uneventful window
// does not produce a trailing transmission.
func TestWindowWithoutPressureSendsNothing(t *testing.T) {
	e, tx := newTestEngine(10 * time.Millisecond)

	e.UpdateAndTransmit(spatial.Update{Gain: f(1)})
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, tx.sendCount())
}

// TestPeerGainOneShotLifecycle verifies that queued peer gains are cleared
// after a confirmed send and compared against the transmitted history, so a
// later change to one peer re-sends only that peer.
func TestPeerGainOneShotLifecycle(t *testing.T) {
	e, tx := newTestEngine(10 * time.Millisecond)

	res := e.QueuePeerGains(map[string]float64{"a": 2.0, "b": 0.5})
	require.True(t, res.Success)
	require.Equal(t, 1, tx.sendCount())
	assert.Equal(t, map[string]float64{"a": 2.0, "b": 0.5}, tx.lastSent().OtherUserGains)

	// Let the window lapse so the next queue call sends immediately.
	time.Sleep(40 * time.Millisecond)

	res = e.QueuePeerGain("a", 3.0)
	require.True(t, res.Success)
	require.Equal(t, 2, tx.sendCount())
	assert.Equal(t, map[string]float64{"a": 3.0}, tx.lastSent().OtherUserGains,
		"only the changed peer should be re-sent")
}

// TestRepeatedIdenticalGainIsSuppressed verifies that re-queueing a gain
// already in the transmitted history sends nothing.
func TestRepeatedIdenticalGainIsSuppressed(t *testing.T) {
	e, tx := newTestEngine(10 * time.Millisecond)

	e.QueuePeerGain("a", 2.0)
	require.Equal(t, 1, tx.sendCount())
	time.Sleep(40 * time.Millisecond)

	res := e.QueuePeerGain("a", 2.0)
	assert.True(t, res.Success)
	assert.Empty(t, res.RawData, "identical gain should produce an empty delta")
	assert.Equal(t, 1, tx.sendCount())
}

// TestFailedSendLeavesDeltaPending verifies that a failed send does not
// advance the snapshot: the next transmit retries the same fields.
func TestFailedSendLeavesDeltaPending(t *testing.T) {
	e, tx := newTestEngine(time.Hour)
	boom := errors.New("wire broke")
	tx.err = boom

	res := e.UpdateAndTransmit(spatial.Update{Gain: f(0.7)})
	require.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, boom))
	assert.Equal(t, 0, tx.sendCount())

	tx.mu.Lock()
	tx.err = nil
	tx.mu.Unlock()

	res = e.Transmit(true)
	require.True(t, res.Success)
	require.Equal(t, 1, tx.sendCount())
	assert.Equal(t, 0.7, *tx.lastSent().Gain)
}

// TestEmptyDeltaSucceedsWithoutSend verifies that transmitting with nothing
// changed reports success and touches the wire not at all.
func TestEmptyDeltaSucceedsWithoutSend(t *testing.T) {
	e, tx := newTestEngine(time.Hour)

	res := e.Transmit(true)
	assert.True(t, res.Success)
	assert.Empty(t, res.RawData)
	assert.Equal(t, 0, tx.sendCount())
}

// TestUnboundTransmitterFails verifies ErrNotConnected when state is
// pending but no session is bound.
func TestUnboundTransmitterFails(t *testing.T) {
	e := NewEngine(time.Hour, orientation.OrderYawPitchRoll, orientation.DefaultAxesConfiguration())

	res := e.UpdateAndTransmit(spatial.Update{Gain: f(1)})
	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, ErrNotConnected))
}

// TestGainHistoryCapBulkClears verifies that exceeding the history cap
// clears the whole history, after which previously sent gains retransmit.
func TestGainHistoryCapBulkClears(t *testing.T) {
	e, tx := newTestEngine(time.Hour)
	e.gainHistoryLimit = 2

	e.QueuePeerGains(map[string]float64{"a": 1, "b": 1, "c": 1})
	require.Equal(t, 1, tx.sendCount())

	// The history exceeded the cap and was cleared, so an identical gain is
	// no longer suppressed.
	res := e.Transmit(true) // close the window bookkeeping
	require.True(t, res.Success)
	res = e.QueuePeerGain("a", 1)
	require.True(t, res.Success)
	require.Equal(t, 2, tx.sendCount())
	assert.Equal(t, map[string]float64{"a": 1}, tx.lastSent().OtherUserGains)
}

// TestFlushSendsFullState verifies that Flush forgets the snapshot and
// re-sends every field the application ever set.
func TestFlushSendsFullState(t *testing.T) {
	e, tx := newTestEngine(time.Hour)

	e.UpdateAndTransmit(spatial.Update{
		Position: &spatial.Point3D{X: 5},
		Gain:     f(0.5),
	})
	require.Equal(t, 1, tx.sendCount())

	res := e.Flush()
	require.True(t, res.Success)
	require.Equal(t, 2, tx.sendCount())
	d := tx.lastSent()
	assert.Equal(t, 5.0, d.Position.X)
	assert.Equal(t, 0.5, *d.Gain)
}

// TestResetCancelsPendingFlush verifies that Reset drops a coalesced flush
// scheduled inside the current window.
func TestResetCancelsPendingFlush(t *testing.T) {
	e, tx := newTestEngine(20 * time.Millisecond)

	e.UpdateAndTransmit(spatial.Update{Gain: f(1)})
	e.UpdateAndTransmit(spatial.Update{Gain: f(2)}) // deferred
	e.Reset()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, tx.sendCount(), "reset should cancel the pending flush")
}
