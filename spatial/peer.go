package spatial

import "github.com/opd-ai/spatialmix/orientation"

// PeerUpdate is a server-pushed snapshot of another participant.
//
// The server includes only the fields that changed, so every non-identity
// field is a pointer: nil means "not included in this update", never "zero".
type PeerUpdate struct {
	// ProvidedUserID is the application-supplied identity from the peer's
	// auth token. May be empty when the token carried none.
	ProvidedUserID string

	// VisitIDHash is the opaque server-issued identifier for the peer's
	// current visit to the space.
	VisitIDHash string

	Position       *Point3D
	Orientation    *orientation.Quaternion
	VolumeDecibels *float64
	Gain           *float64
	IsStereo       *bool
}
