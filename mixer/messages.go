package mixer

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// MessageType discriminates signaling envelopes.
type MessageType string

const (
	// MessageTypeHello opens the handshake: token, session ID, streaming
	// preferences.
	MessageTypeHello MessageType = "hello"
	// MessageTypeOffer carries the client's SDP offer.
	MessageTypeOffer MessageType = "offer"
	// MessageTypeAnswer carries the mixer's SDP answer.
	MessageTypeAnswer MessageType = "answer"
	// MessageTypeCandidate carries one ICE candidate, either direction.
	MessageTypeCandidate MessageType = "candidate"
	// MessageTypeInit is the mixer's session initialization result.
	MessageTypeInit MessageType = "init"
	// MessageTypeUserData is a server-pushed batch of peer updates.
	MessageTypeUserData MessageType = "user-data"
	// MessageTypePeersDisconnected is a server-pushed batch of departed
	// peers.
	MessageTypePeersDisconnected MessageType = "peers-disconnected"
	// MessageTypeMute is a server-initiated input mute change.
	MessageTypeMute MessageType = "mute"
	// MessageTypeBye announces an orderly teardown.
	MessageTypeBye MessageType = "bye"
)

// envelope is the outer JSON frame of every signaling message.
type envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// marshalEnvelope encodes a typed payload inside an envelope.
func marshalEnvelope(msgType MessageType, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %q payload: %w", msgType, err)
		}
		raw = b
	}
	return sonic.Marshal(envelope{Type: msgType, Payload: raw})
}

// unmarshalEnvelope decodes the outer frame, returning the type and the
// still-encoded payload.
func unmarshalEnvelope(data []byte) (MessageType, json.RawMessage, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("envelope missing type field")
	}
	return env.Type, env.Payload, nil
}

// helloPayload opens the handshake.
type helloPayload struct {
	Token          string `json:"token"`
	SessionID      string `json:"session_id"`
	StreamUserData bool   `json:"stream_user_data"`
}

// sdpPayload carries an offer or answer.
type sdpPayload struct {
	SDP string `json:"sdp"`
}

// candidatePayload carries one ICE candidate.
type candidatePayload struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdp_mid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdp_mline_index,omitempty"`
}

// initErrorCodeCapacity marks an init refusal because the space is full.
const initErrorCodeCapacity = "capacity_exceeded"

// initPayload is the mixer's session initialization result. Code carries a
// machine-readable refusal reason when Success is false; Error is the
// human-readable message.
type initPayload struct {
	Success        bool   `json:"success"`
	Code           string `json:"code,omitempty"`
	Error          string `json:"error,omitempty"`
	VisitIDHash    string `json:"visit_id_hash,omitempty"`
	ProvidedUserID string `json:"provided_user_id,omitempty"`
	SpaceID        string `json:"space_id,omitempty"`
}

// mutePayload is a server-initiated input mute change.
type mutePayload struct {
	Muted bool `json:"muted"`
}
