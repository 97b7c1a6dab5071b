// Package spatial defines the value objects for one participant's spatial
// audio state and the delta computation used by the synchronization engine.
//
// The central types are:
//
//   - [State]: the participant's current position, orientation, gain,
//     attenuation, rolloff, volume threshold, input mute and the one-shot
//     per-peer gain queue. Scalar fields are pointers; nil means "never set,
//     let the server use its default".
//   - [Update]: an explicit optional-field record describing a partial
//     change. Absent (nil) fields leave the state untouched. Numeric fields
//     are clamped to their valid domain on ingestion and Euler orientations
//     are converted to quaternions at merge time.
//   - [Snapshot]: a mirror of what the server is believed to hold, updated
//     only after a confirmed transmission.
//   - [Delta]: the subset of fields whose current value differs from the
//     snapshot, produced by [Diff].
//   - [PeerUpdate]: a server-pushed per-peer snapshot with pointer presence
//     semantics (a nil field was not included by the server).
package spatial
