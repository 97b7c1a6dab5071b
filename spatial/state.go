package spatial

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/spatialmix/orientation"
)

// Point3D is a position in meters in the mixer's world frame.
type Point3D struct {
	X float64
	Y float64
	Z float64
}

// State holds one participant's spatial audio state.
//
// Scalar fields are nil until the application first sets them; the mixer
// applies its own defaults for fields it has never received. OtherUserGains
// is a queue of one-shot per-peer gain intents keyed by visit ID hash; it is
// cleared locally after each successful transmission.
type State struct {
	Position        *Point3D
	Orientation     *orientation.Quaternion
	Gain            *float64
	VolumeThreshold *float64
	Attenuation     *float64
	Rolloff         *float64
	InputMuted      *bool
	OtherUserGains  map[string]float64
}

// Update is a partial state change. Nil fields leave the corresponding
// State field untouched. Supplying OrientationEuler converts it to a
// quaternion at merge time using the caller's axis configuration; if both
// orientation forms are present the quaternion wins and the Euler form is
// ignored.
type Update struct {
	Position         *Point3D
	OrientationQuat  *orientation.Quaternion
	OrientationEuler *orientation.Euler
	Gain             *float64
	VolumeThreshold  *float64
	Attenuation      *float64
	Rolloff          *float64
	InputMuted       *bool
}

// Apply merges u into the state, clamping numeric fields to their valid
// domain. Gain and rolloff are clamped to >= 0; orientation quaternions are
// re-issued through the clamping constructor so the stored value is always
// normalized and finite.
func (s *State) Apply(u Update, order orientation.Order, axes orientation.AxesConfiguration) {
	if u.Position != nil {
		p := *u.Position
		s.Position = &p
	}
	switch {
	case u.OrientationQuat != nil:
		q := orientation.NewQuaternion(u.OrientationQuat.W, u.OrientationQuat.X, u.OrientationQuat.Y, u.OrientationQuat.Z)
		s.Orientation = &q
	case u.OrientationEuler != nil:
		q := orientation.EulerToQuaternion(*u.OrientationEuler, order, axes)
		s.Orientation = &q
	}
	if u.Gain != nil {
		g := clampNonNegative(*u.Gain, "gain")
		s.Gain = &g
	}
	if u.VolumeThreshold != nil {
		v := *u.VolumeThreshold
		s.VolumeThreshold = &v
	}
	if u.Attenuation != nil {
		a := *u.Attenuation
		s.Attenuation = &a
	}
	if u.Rolloff != nil {
		r := clampNonNegative(*u.Rolloff, "rolloff")
		s.Rolloff = &r
	}
	if u.InputMuted != nil {
		m := *u.InputMuted
		s.InputMuted = &m
	}
}

// QueueOtherUserGain records a one-shot gain adjustment for the peer with
// the given visit ID hash, clamped to >= 0.
func (s *State) QueueOtherUserGain(visitIDHash string, gain float64) {
	if s.OtherUserGains == nil {
		s.OtherUserGains = make(map[string]float64)
	}
	s.OtherUserGains[visitIDHash] = clampNonNegative(gain, "other user gain")
}

func clampNonNegative(v float64, field string) float64 {
	if v < 0 {
		logrus.WithFields(logrus.Fields{
			"function": "clampNonNegative",
			"field":    field,
			"value":    v,
		}).Warn("Negative value clamped to 0")
		return 0
	}
	return v
}
