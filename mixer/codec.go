package mixer

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/opd-ai/spatialmix/orientation"
	"github.com/opd-ai/spatialmix/spatial"
)

// wireVec is a position on the wire, meters in the mixer's world frame.
type wireVec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// wireQuat is an orientation quaternion on the wire.
type wireQuat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// wireDelta is the compact data-channel encoding of a state delta. Absent
// fields are omitted entirely; the mixer treats omission as "unchanged".
type wireDelta struct {
	Position        *wireVec           `json:"pos,omitempty"`
	Orientation     *wireQuat          `json:"quat,omitempty"`
	Gain            *float64           `json:"gain,omitempty"`
	VolumeThreshold *float64           `json:"vol_threshold,omitempty"`
	Attenuation     *float64           `json:"attenuation,omitempty"`
	Rolloff         *float64           `json:"rolloff,omitempty"`
	InputMuted      *bool              `json:"muted,omitempty"`
	OtherUserGains  map[string]float64 `json:"peer_gains,omitempty"`
}

// encodeDelta serializes a delta for the data channel and returns the raw
// payload written to the wire.
func encodeDelta(d *spatial.Delta) (string, error) {
	w := wireDelta{
		Gain:            d.Gain,
		VolumeThreshold: d.VolumeThreshold,
		Attenuation:     d.Attenuation,
		Rolloff:         d.Rolloff,
		InputMuted:      d.InputMuted,
		OtherUserGains:  d.OtherUserGains,
	}
	if d.Position != nil {
		w.Position = &wireVec{X: d.Position.X, Y: d.Position.Y, Z: d.Position.Z}
	}
	if d.Orientation != nil {
		w.Orientation = &wireQuat{W: d.Orientation.W, X: d.Orientation.X, Y: d.Orientation.Y, Z: d.Orientation.Z}
	}
	raw, err := sonic.Marshal(&w)
	if err != nil {
		return "", fmt.Errorf("encode delta: %w", err)
	}
	return string(raw), nil
}

// wirePeerUpdate is one peer's snapshot as pushed by the mixer. Pointer
// fields preserve presence: an omitted field stays nil.
type wirePeerUpdate struct {
	ProvidedUserID string    `json:"id,omitempty"`
	VisitIDHash    string    `json:"hash"`
	Position       *wireVec  `json:"pos,omitempty"`
	Orientation    *wireQuat `json:"quat,omitempty"`
	VolumeDecibels *float64  `json:"vol,omitempty"`
	Gain           *float64  `json:"gain,omitempty"`
	IsStereo       *bool     `json:"stereo,omitempty"`
}

// decodePeerUpdates parses a server-pushed batch into the SDK's peer update
// records, preserving field presence.
func decodePeerUpdates(raw []byte) ([]spatial.PeerUpdate, error) {
	var wire []wirePeerUpdate
	if err := sonic.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode peer updates: %w", err)
	}
	updates := make([]spatial.PeerUpdate, 0, len(wire))
	for _, w := range wire {
		u := spatial.PeerUpdate{
			ProvidedUserID: w.ProvidedUserID,
			VisitIDHash:    w.VisitIDHash,
			VolumeDecibels: w.VolumeDecibels,
			Gain:           w.Gain,
			IsStereo:       w.IsStereo,
		}
		if w.Position != nil {
			u.Position = &spatial.Point3D{X: w.Position.X, Y: w.Position.Y, Z: w.Position.Z}
		}
		if w.Orientation != nil {
			q := orientation.NewQuaternion(w.Orientation.W, w.Orientation.X, w.Orientation.Y, w.Orientation.Z)
			u.Orientation = &q
		}
		updates = append(updates, u)
	}
	return updates, nil
}
