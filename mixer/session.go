package mixer

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/spatialmix/connection"
	"github.com/opd-ai/spatialmix/spatial"
)

// defaultAttemptTimeout bounds a connection attempt when the caller
// supplies no per-attempt timeout.
const defaultAttemptTimeout = 5 * time.Second

// Config configures a Session.
type Config struct {
	// ICE optionally overrides the STUN/TURN servers. Validated at
	// construction.
	ICE *ICEConfig
}

// Session is the concrete mixer session: WebSocket signaling, a WebRTC
// peer connection carrying the mixed audio downstream, and a reliable data
// channel carrying state deltas upstream.
//
// Each Connect opens a new session generation. Callbacks wired to one
// generation's transports carry that generation number, so late events from
// a torn-down generation cannot perturb its successor.
//
// It implements connection.MixerSession. All methods are safe for
// concurrent use.
type Session struct {
	mu  sync.Mutex
	cfg Config

	gen       uint64
	sig       *signalingClient
	pc        *webrtc.PeerConnection
	dc        *webrtc.DataChannel
	connected bool
	closing   bool
	sessionID string

	onUserData          func([]spatial.PeerUpdate)
	onPeersDisconnected func([]spatial.PeerUpdate)
	onMuteChanged       func(bool)
	onDropped           func(reason string)
}

// NewSession validates the configuration and creates an unconnected
// session.
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.ICE.Validate(); err != nil {
		return nil, err
	}
	return &Session{cfg: cfg}, nil
}

// OnUserData registers the callback for server-pushed peer update batches.
func (s *Session) OnUserData(cb func([]spatial.PeerUpdate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUserData = cb
}

// OnPeersDisconnected registers the callback for departed-peer batches.
func (s *Session) OnPeersDisconnected(cb func([]spatial.PeerUpdate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPeersDisconnected = cb
}

// OnMuteChanged registers the callback for server-initiated input mute
// changes.
func (s *Session) OnMuteChanged(cb func(bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMuteChanged = cb
}

// OnDropped registers the callback invoked when an established session
// dies for any reason other than a local Disconnect.
func (s *Session) OnDropped(cb func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDropped = cb
}

// Connect performs one full session handshake: dial signaling, exchange
// hello/offer/answer/candidates, wait for the mixer's init result and the
// data channel open, all within the attempt timeout. A capacity refusal is
// reported by wrapping connection.ErrCapacityExceeded. If a local
// Disconnect arrives mid-handshake the attempt tears its own transports
// down and reports ErrHandshakeAborted instead of committing.
func (s *Session) Connect(params connection.ConnectParams) (*connection.InitResponse, error) {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil, fmt.Errorf("session already connected")
	}
	s.closing = false
	s.gen++
	gen := s.gen
	s.sessionID = uuid.NewString()
	sessionID := s.sessionID
	s.mu.Unlock()

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	logrus.WithFields(logrus.Fields{
		"function":   "Connect",
		"url":        params.SignalingURL,
		"session_id": sessionID,
		"timeout_ms": timeout.Milliseconds(),
	}).Info("Opening mixer session")

	sig, err := dialSignaling(params.SignalingURL, timeout)
	if err != nil {
		return nil, err
	}

	pc, err := newPeerConnection(s.cfg.ICE)
	if err != nil {
		sig.close()
		return nil, err
	}

	ordered := true
	dc, err := pc.CreateDataChannel("spatial-data", &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		sig.close()
		return nil, fmt.Errorf("create data channel: %w", err)
	}

	answerCh := make(chan string, 1)
	initCh := make(chan initPayload, 1)
	dcOpen := make(chan struct{})
	sigClosed := make(chan error, 1)

	dc.OnOpen(func() { close(dcOpen) })
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		msgType, payload, err := unmarshalEnvelope(msg.Data)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Connect",
				"error":    err,
			}).Warn("Dropping malformed data channel message")
			return
		}
		s.handleServerMessage(gen, msgType, payload)
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		c := cand.ToJSON()
		if err := sig.send(MessageTypeCandidate, candidatePayload{
			Candidate:     c.Candidate,
			SDPMid:        c.SDPMid,
			SDPMLineIndex: c.SDPMLineIndex,
		}); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Connect",
				"error":    err,
			}).Debug("Failed to forward local ICE candidate")
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			s.notifyDropped(gen, "peer connection "+state.String())
		}
	})

	sig.run(func(msgType MessageType, payload json.RawMessage) {
		switch msgType {
		case MessageTypeAnswer:
			var p sdpPayload
			if err := sonic.Unmarshal(payload, &p); err == nil {
				select {
				case answerCh <- p.SDP:
				default:
				}
			}
		case MessageTypeCandidate:
			var p candidatePayload
			if err := sonic.Unmarshal(payload, &p); err == nil {
				if err := pc.AddICECandidate(webrtc.ICECandidateInit{
					Candidate:     p.Candidate,
					SDPMid:        p.SDPMid,
					SDPMLineIndex: p.SDPMLineIndex,
				}); err != nil {
					logrus.WithFields(logrus.Fields{
						"function": "Connect",
						"error":    err,
					}).Debug("Failed to add remote ICE candidate")
				}
			}
		case MessageTypeInit:
			var p initPayload
			if err := sonic.Unmarshal(payload, &p); err == nil {
				select {
				case initCh <- p:
				default:
				}
			}
		default:
			s.handleServerMessage(gen, msgType, payload)
		}
	}, func(err error) {
		select {
		case sigClosed <- err:
		default:
		}
		s.notifyDropped(gen, fmt.Sprintf("signaling channel closed: %v", err))
	})

	fail := func(err error) (*connection.InitResponse, error) {
		dc.Close()
		pc.Close()
		sig.close()
		return nil, err
	}

	if err := sig.send(MessageTypeHello, helloPayload{
		Token:          params.AuthToken,
		SessionID:      sessionID,
		StreamUserData: params.StreamUserData,
	}); err != nil {
		return fail(err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fail(fmt.Errorf("create offer: %w", err))
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return fail(fmt.Errorf("set local description: %w", err))
	}
	if err := sig.send(MessageTypeOffer, sdpPayload{SDP: offer.SDP}); err != nil {
		return fail(err)
	}

	select {
	case sdp := <-answerCh:
		if err := pc.SetRemoteDescription(webrtc.SessionDescription{
			Type: webrtc.SDPTypeAnswer,
			SDP:  sdp,
		}); err != nil {
			return fail(fmt.Errorf("set remote description: %w", err))
		}
	case err := <-sigClosed:
		return fail(fmt.Errorf("%w before answer: %v", ErrSignalingClosed, err))
	case <-deadline.C:
		return fail(fmt.Errorf("%w: no answer within %v", ErrAttemptTimedOut, timeout))
	}

	var init initPayload
	select {
	case init = <-initCh:
	case err := <-sigClosed:
		return fail(fmt.Errorf("%w before init: %v", ErrSignalingClosed, err))
	case <-deadline.C:
		return fail(fmt.Errorf("%w: no init response within %v", ErrAttemptTimedOut, timeout))
	}
	if !init.Success {
		return fail(initError(init))
	}

	select {
	case <-dcOpen:
	case err := <-sigClosed:
		return fail(fmt.Errorf("%w before data channel open: %v", ErrSignalingClosed, err))
	case <-deadline.C:
		return fail(fmt.Errorf("%w: data channel not open within %v", ErrAttemptTimedOut, timeout))
	}

	s.mu.Lock()
	if s.closing || gen != s.gen {
		s.mu.Unlock()
		return fail(ErrHandshakeAborted)
	}
	s.sig = sig
	s.pc = pc
	s.dc = dc
	s.connected = true
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":      "Connect",
		"visit_id_hash": init.VisitIDHash,
		"space_id":      init.SpaceID,
	}).Info("Mixer session established")

	return &connection.InitResponse{
		VisitIDHash:    init.VisitIDHash,
		ProvidedUserID: init.ProvidedUserID,
		SpaceID:        init.SpaceID,
	}, nil
}

// initError maps a failed init payload to the error reported to the
// connection manager. Refusal classification goes by the machine-readable
// code, never by the free-form message text.
func initError(init initPayload) error {
	if init.Code == initErrorCodeCapacity {
		return fmt.Errorf("%w: %s", connection.ErrCapacityExceeded, init.Error)
	}
	return fmt.Errorf("mixer rejected session: %s", init.Error)
}

// Disconnect tears the session down in an orderly way. Safe to call at any
// time, including when no session exists; an in-flight handshake observes
// the closing flag and aborts instead of committing.
func (s *Session) Disconnect() (string, error) {
	s.mu.Lock()
	s.closing = true
	s.connected = false
	sig, pc, dc := s.sig, s.pc, s.dc
	s.sig, s.pc, s.dc = nil, nil, nil
	s.mu.Unlock()

	if sig != nil {
		if err := sig.send(MessageTypeBye, nil); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Disconnect",
				"error":    err,
			}).Debug("Failed to send bye before closing")
		}
	}
	if dc != nil {
		dc.Close()
	}
	if pc != nil {
		pc.Close()
	}
	if sig != nil {
		sig.close()
	}
	return "disconnected by client", nil
}

// SendDelta encodes the delta and writes it to the data channel, returning
// the raw payload transmitted.
func (s *Session) SendDelta(delta *spatial.Delta) (string, error) {
	s.mu.Lock()
	dc := s.dc
	ok := s.connected
	s.mu.Unlock()
	if !ok || dc == nil {
		return "", ErrNoActiveSession
	}
	raw, err := encodeDelta(delta)
	if err != nil {
		return "", err
	}
	if err := dc.SendText(raw); err != nil {
		return "", fmt.Errorf("send delta: %w", err)
	}
	return raw, nil
}

// handleServerMessage routes a post-handshake server event to the
// registered callbacks. Events from a superseded generation are dropped.
func (s *Session) handleServerMessage(gen uint64, msgType MessageType, payload json.RawMessage) {
	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}

	switch msgType {
	case MessageTypeUserData:
		updates, err := decodePeerUpdates(payload)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "handleServerMessage",
				"error":    err,
			}).Warn("Dropping malformed user-data batch")
			return
		}
		s.mu.Lock()
		cb := s.onUserData
		s.mu.Unlock()
		if cb != nil && len(updates) > 0 {
			cb(updates)
		}
	case MessageTypePeersDisconnected:
		updates, err := decodePeerUpdates(payload)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "handleServerMessage",
				"error":    err,
			}).Warn("Dropping malformed peers-disconnected batch")
			return
		}
		s.mu.Lock()
		cb := s.onPeersDisconnected
		s.mu.Unlock()
		if cb != nil && len(updates) > 0 {
			cb(updates)
		}
	case MessageTypeMute:
		var p mutePayload
		if err := sonic.Unmarshal(payload, &p); err != nil {
			return
		}
		s.mu.Lock()
		cb := s.onMuteChanged
		s.mu.Unlock()
		if cb != nil {
			cb(p.Muted)
		}
	case MessageTypeBye:
		s.notifyDropped(gen, "session closed by server")
	}
}

// notifyDropped reports the death of an established session exactly once
// and closes that generation's transports. Events from a superseded
// generation are ignored, as are drops during a handshake (the handshake
// surfaces its own error) or a local teardown (not a drop).
func (s *Session) notifyDropped(gen uint64, reason string) {
	s.mu.Lock()
	if gen != s.gen || !s.connected || s.closing {
		s.mu.Unlock()
		return
	}
	s.connected = false
	sig, pc, dc := s.sig, s.pc, s.dc
	s.sig, s.pc, s.dc = nil, nil, nil
	cb := s.onDropped
	s.mu.Unlock()

	if dc != nil {
		dc.Close()
	}
	if pc != nil {
		pc.Close()
	}
	if sig != nil {
		sig.close()
	}

	logrus.WithFields(logrus.Fields{
		"function": "notifyDropped",
		"reason":   reason,
	}).Warn("Mixer session dropped")
	if cb != nil {
		cb(reason)
	}
}
