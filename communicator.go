package spatialmix

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/spatialmix/connection"
	"github.com/opd-ai/spatialmix/datasync"
	"github.com/opd-ai/spatialmix/mixer"
	"github.com/opd-ai/spatialmix/spatial"
	"github.com/opd-ai/spatialmix/subscription"
)

// mixerSession is what the communicator needs from the concrete session:
// the manager-facing surface plus the event registration hooks.
// mixer.Session satisfies it; tests substitute a scripted fake.
type mixerSession interface {
	connection.MixerSession

	OnUserData(func([]spatial.PeerUpdate))
	OnPeersDisconnected(func([]spatial.PeerUpdate))
	OnMuteChanged(func(bool))
	OnDropped(func(reason string))
}

// Communicator is the top-level SDK object: it maintains the session with
// the mixer, keeps the local model of the user's spatial audio state, and
// synchronizes that state to the server under the configured rate limit.
//
// Create one with New, register callbacks, then Connect. All methods are
// safe for concurrent use.
type Communicator struct {
	opts    Options
	engine  *datasync.Engine
	router  *subscription.Router
	manager *connection.Manager
	session mixerSession

	cbMu                sync.RWMutex
	onUsersDisconnected func([]spatial.PeerUpdate)
	onMuteChanged       func(bool)
}

// New validates the options and creates a communicator backed by a real
// mixer session. A validation failure is fatal: no partial communicator is
// returned.
func New(opts *Options) (*Communicator, error) {
	if opts == nil {
		opts = NewOptions()
	}
	session, err := mixer.NewSession(mixer.Config{ICE: opts.ICE})
	if err != nil {
		return nil, err
	}
	return newCommunicator(opts, session)
}

func newCommunicator(opts *Options, session mixerSession) (*Communicator, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	engine := datasync.NewEngine(opts.TransmitRateLimit, opts.EulerOrder, opts.Axes)
	c := &Communicator{
		opts:    *opts,
		engine:  engine,
		router:  subscription.NewRouter(),
		manager: connection.NewManager(session, engine, opts.RetryPolicy),
		session: session,
	}

	session.OnUserData(c.router.Route)
	session.OnDropped(c.manager.HandleSessionDropped)
	session.OnPeersDisconnected(func(batch []spatial.PeerUpdate) {
		c.cbMu.RLock()
		cb := c.onUsersDisconnected
		c.cbMu.RUnlock()
		if cb != nil && len(batch) > 0 {
			cb(batch)
		}
	})
	session.OnMuteChanged(func(muted bool) {
		c.cbMu.RLock()
		cb := c.onMuteChanged
		c.cbMu.RUnlock()
		if cb != nil {
			cb(muted)
		}
	})

	logrus.WithFields(logrus.Fields{
		"function":           "newCommunicator",
		"euler_order":        opts.EulerOrder,
		"transmit_window_ms": opts.TransmitRateLimit.Milliseconds(),
		"stream_user_data":   opts.ServerShouldSendUserData,
	}).Info("Communicator created")
	return c, nil
}

// SignalingURL builds the websocket signaling address for a host and port.
func SignalingURL(host string, port int) string {
	return fmt.Sprintf("wss://%s:%d/session", host, port)
}

// Connect opens the session against the production endpoint. It blocks
// until the entire retry sequence (if any) settles, returning the mixer's
// init response on success.
func (c *Communicator) Connect(ctx context.Context, authToken string) (*connection.InitResponse, error) {
	return c.ConnectTo(ctx, authToken, DefaultSignalingHost, DefaultSignalingPort)
}

// ConnectTo is Connect against an explicit signaling host and port.
func (c *Communicator) ConnectTo(ctx context.Context, authToken, host string, port int) (*connection.InitResponse, error) {
	return c.manager.Connect(ctx, connection.ConnectParams{
		AuthToken:      authToken,
		SignalingURL:   SignalingURL(host, port),
		Timeout:        c.opts.RetryPolicy.TimeoutPerAttempt,
		StreamUserData: c.opts.ServerShouldSendUserData,
	})
}

// Disconnect tears the session down. It is idempotent and always succeeds
// (barring context cancellation); the last-transmitted snapshot is reset so
// a later Connect starts fresh.
func (c *Communicator) Disconnect(ctx context.Context) (string, error) {
	return c.manager.Disconnect(ctx)
}

// GetConnectionState returns the current lifecycle state.
func (c *Communicator) GetConnectionState() connection.State {
	return c.manager.State()
}

// UpdateUserData merges a partial update into the local state without
// transmitting. Absent fields are untouched; numeric fields are clamped;
// Euler orientations are converted to quaternions immediately.
func (c *Communicator) UpdateUserData(update spatial.Update) {
	c.engine.Update(update)
}

// UpdateUserDataAndTransmit merges a partial update and transmits the
// resulting delta under the rate limit. The result reports whether a send
// happened, was coalesced, or failed; failed sends are never retried by
// the SDK.
func (c *Communicator) UpdateUserDataAndTransmit(update spatial.Update) datasync.Result {
	return c.engine.UpdateAndTransmit(update)
}

// SetOtherUserGain queues a one-shot gain adjustment for the peer with the
// given visit ID hash and transmits under the rate limit.
func (c *Communicator) SetOtherUserGain(visitIDHash string, gain float64) datasync.Result {
	return c.engine.QueuePeerGain(visitIDHash, gain)
}

// SetOtherUserGains queues one-shot gain adjustments for several peers and
// transmits under the rate limit.
func (c *Communicator) SetOtherUserGains(gains map[string]float64) datasync.Result {
	return c.engine.QueuePeerGains(gains)
}

// SetInputMuted updates the input mute intent and transmits under the rate
// limit.
func (c *Communicator) SetInputMuted(muted bool) datasync.Result {
	return c.engine.UpdateAndTransmit(spatial.Update{InputMuted: &muted})
}

// AddUserDataSubscription registers a subscription for server-pushed peer
// data. It is rejected when the communicator was configured not to stream
// peer data.
func (c *Communicator) AddUserDataSubscription(sub *subscription.Subscription) error {
	if !c.opts.ServerShouldSendUserData {
		logrus.WithFields(logrus.Fields{
			"function": "AddUserDataSubscription",
		}).Warn("Subscription rejected: peer data streaming is disabled")
		return ErrSubscriptionsDisabled
	}
	return c.router.Add(sub)
}

// OnConnectionStateChanged registers the lifecycle state callback. It
// fires only when the externally observable state actually changes.
func (c *Communicator) OnConnectionStateChanged(cb connection.StateChangeFunc) {
	c.manager.OnStateChanged(cb)
}

// OnUsersDisconnected registers the callback for peers leaving the space.
func (c *Communicator) OnUsersDisconnected(cb func(updates []spatial.PeerUpdate)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onUsersDisconnected = cb
}

// OnMuteChanged registers the callback for server-initiated input mute
// changes.
func (c *Communicator) OnMuteChanged(cb func(muted bool)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onMuteChanged = cb
}
