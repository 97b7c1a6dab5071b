// Package mixer implements the concrete session to the spatial-audio
// mixing service.
//
// A [Session] negotiates a WebRTC peer connection with the mixer over a
// WebSocket signaling channel and then carries state deltas on a reliable
// data channel while the mixed audio arrives on a receive-only audio
// transceiver. The connection manager consumes it through the
// connection.MixerSession interface; nothing in this package knows about
// retry policy or lifecycle states.
//
// Wire messages are JSON envelopes ({"type": ..., "payload": ...}); see
// messages.go for the envelope types and codec.go for the compact delta
// encoding.
package mixer
