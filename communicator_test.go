package spatialmix

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/spatialmix/connection"
	"github.com/opd-ai/spatialmix/mixer"
	"github.com/opd-ai/spatialmix/orientation"
	"github.com/opd-ai/spatialmix/spatial"
	"github.com/opd-ai/spatialmix/subscription"
)

// fakeSession is an in-process mixerSession for facade tests.
type fakeSession struct {
	mu         sync.Mutex
	connectErr error
	resp       *connection.InitResponse
	sent       []*spatial.Delta

	onUserData          func([]spatial.PeerUpdate)
	onPeersDisconnected func([]spatial.PeerUpdate)
	onMuteChanged       func(bool)
	onDropped           func(string)
}

func (s *fakeSession) Connect(params connection.ConnectParams) (*connection.InitResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return s.resp, nil
}

func (s *fakeSession) Disconnect() (string, error) { return "disconnected by client", nil }

func (s *fakeSession) SendDelta(d *spatial.Delta) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, d)
	return "sent", nil
}

func (s *fakeSession) sentDeltas() []*spatial.Delta {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*spatial.Delta, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *fakeSession) OnUserData(cb func([]spatial.PeerUpdate))          { s.onUserData = cb }
func (s *fakeSession) OnPeersDisconnected(cb func([]spatial.PeerUpdate)) { s.onPeersDisconnected = cb }
func (s *fakeSession) OnMuteChanged(cb func(bool))                       { s.onMuteChanged = cb }
func (s *fakeSession) OnDropped(cb func(string))                         { s.onDropped = cb }

func newTestCommunicator(t *testing.T, opts *Options) (*Communicator, *fakeSession) {
	t.Helper()
	if opts == nil {
		opts = NewOptions()
	}
	session := &fakeSession{resp: &connection.InitResponse{
		VisitIDHash:    "vh-me",
		ProvidedUserID: "me",
		SpaceID:        "space-1",
	}}
	c, err := newCommunicator(opts, session)
	require.NoError(t, err)
	return c, session
}

// TestNewRejectsInvalidOptions verifies construction fails fast on a bad
// axis configuration or Euler order.
func TestNewRejectsInvalidOptions(t *testing.T) {
	opts := NewOptions()
	opts.Axes.YawAxis = opts.Axes.PitchAxis
	_, err := New(opts)
	assert.True(t, errors.Is(err, orientation.ErrInvalidAxisConfiguration))

	opts = NewOptions()
	opts.EulerOrder = orientation.Order(99)
	_, err = New(opts)
	assert.True(t, errors.Is(err, orientation.ErrInvalidEulerOrder))
}

// TestNewRejectsInvalidICE verifies a malformed ICE override fails
// construction.
func TestNewRejectsInvalidICE(t *testing.T) {
	opts := NewOptions()
	opts.ICE = &mixer.ICEConfig{STUNURLs: []string{"https://wrong.example.com"}}
	_, err := New(opts)
	assert.True(t, errors.Is(err, mixer.ErrInvalidICEConfiguration))
}

// TestOptionsRateLimitNormalization verifies that sub-minimum and zero
// windows are raised to their documented values.
func TestOptionsRateLimitNormalization(t *testing.T) {
	opts := NewOptions()
	opts.TransmitRateLimit = time.Millisecond
	require.NoError(t, opts.validate())
	assert.Equal(t, MinTransmitRateLimit, opts.TransmitRateLimit)

	opts = NewOptions()
	opts.TransmitRateLimit = 0
	require.NoError(t, opts.validate())
	assert.Equal(t, DefaultTransmitRateLimit, opts.TransmitRateLimit)
}

// TestSignalingURL verifies the endpoint shape.
func TestSignalingURL(t *testing.T) {
	assert.Equal(t, "wss://mixer.example.com:8443/session", SignalingURL("mixer.example.com", 8443))
}

// TestConnectAndTransmit verifies the facade end to end against the fake
// session: connect, merge an update, observe the delta on the wire.
func TestConnectAndTransmit(t *testing.T) {
	c, session := newTestCommunicator(t, nil)

	resp, err := c.Connect(context.Background(), "jwt")
	require.NoError(t, err)
	assert.Equal(t, "space-1", resp.SpaceID)
	assert.Equal(t, connection.StateConnected, c.GetConnectionState())

	res := c.UpdateUserDataAndTransmit(spatial.Update{
		Position: &spatial.Point3D{X: 1, Y: 2, Z: 3},
	})
	require.True(t, res.Success)

	deltas := session.sentDeltas()
	require.NotEmpty(t, deltas)
	last := deltas[len(deltas)-1]
	require.NotNil(t, last.Position)
	assert.Equal(t, spatial.Point3D{X: 1, Y: 2, Z: 3}, *last.Position)
}

// TestSetInputMuted verifies the mute intent reaches the wire as a delta.
func TestSetInputMuted(t *testing.T) {
	c, session := newTestCommunicator(t, nil)
	_, err := c.Connect(context.Background(), "jwt")
	require.NoError(t, err)

	res := c.SetInputMuted(true)
	require.True(t, res.Success)

	deltas := session.sentDeltas()
	require.NotEmpty(t, deltas)
	last := deltas[len(deltas)-1]
	require.NotNil(t, last.InputMuted)
	assert.True(t, *last.InputMuted)
}

// TestTransmitBeforeConnectFails verifies pre-connection transmits report
// the sync engine's not-connected error.
func TestTransmitBeforeConnectFails(t *testing.T) {
	c, _ := newTestCommunicator(t, nil)
	g := 0.5
	res := c.UpdateUserDataAndTransmit(spatial.Update{Gain: &g})
	assert.False(t, res.Success)
}

// TestSubscriptionRejectedWhenStreamingDisabled verifies the documented
// coupling between the streaming option and subscriptions.
func TestSubscriptionRejectedWhenStreamingDisabled(t *testing.T) {
	opts := NewOptions()
	opts.ServerShouldSendUserData = false
	c, _ := newTestCommunicator(t, opts)

	err := c.AddUserDataSubscription(&subscription.Subscription{
		Components: []subscription.Component{subscription.ComponentPosition},
		Callback:   func([]spatial.PeerUpdate) {},
	})
	assert.True(t, errors.Is(err, ErrSubscriptionsDisabled))
}

// TestUserDataRoutedToSubscription verifies server pushes flow through the
// session wiring into registered subscriptions.
func TestUserDataRoutedToSubscription(t *testing.T) {
	c, session := newTestCommunicator(t, nil)

	var mu sync.Mutex
	var got []spatial.PeerUpdate
	require.NoError(t, c.AddUserDataSubscription(&subscription.Subscription{
		Components: []subscription.Component{subscription.ComponentPosition},
		Callback: func(updates []spatial.PeerUpdate) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, updates...)
		},
	}))

	require.NotNil(t, session.onUserData, "router must be wired to the session")
	session.onUserData([]spatial.PeerUpdate{
		{VisitIDHash: "vh-1", Position: &spatial.Point3D{X: 7}},
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, 7.0, got[0].Position.X)
}

// TestUsersDisconnectedCallback verifies the departed-peers wiring.
func TestUsersDisconnectedCallback(t *testing.T) {
	c, session := newTestCommunicator(t, nil)

	var mu sync.Mutex
	var got []spatial.PeerUpdate
	c.OnUsersDisconnected(func(updates []spatial.PeerUpdate) {
		mu.Lock()
		defer mu.Unlock()
		got = updates
	})

	require.NotNil(t, session.onPeersDisconnected)
	session.onPeersDisconnected([]spatial.PeerUpdate{{VisitIDHash: "vh-9"}})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "vh-9", got[0].VisitIDHash)
}

// TestMuteChangedCallback verifies server-initiated mute changes reach the
// application.
func TestMuteChangedCallback(t *testing.T) {
	c, session := newTestCommunicator(t, nil)

	var mu sync.Mutex
	var seen []bool
	c.OnMuteChanged(func(muted bool) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, muted)
	})

	require.NotNil(t, session.onMuteChanged)
	session.onMuteChanged(true)
	session.onMuteChanged(false)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, seen)
}

// TestSessionDropWiredToManager verifies that a session drop while
// connected moves the lifecycle out of Connected.
func TestSessionDropWiredToManager(t *testing.T) {
	c, session := newTestCommunicator(t, nil)
	_, err := c.Connect(context.Background(), "jwt")
	require.NoError(t, err)

	require.NotNil(t, session.onDropped)
	session.onDropped("transport lost")

	assert.Eventually(t, func() bool {
		return c.GetConnectionState() == connection.StateDisconnected
	}, time.Second, 5*time.Millisecond)
}

// TestDisconnectIdempotent verifies repeated disconnects succeed.
func TestDisconnectIdempotent(t *testing.T) {
	c, _ := newTestCommunicator(t, nil)
	_, err := c.Connect(context.Background(), "jwt")
	require.NoError(t, err)

	msg, err := c.Disconnect(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	msg, err = c.Disconnect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "already disconnected", msg)
}
