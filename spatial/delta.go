package spatial

import "github.com/opd-ai/spatialmix/orientation"

// Delta is the subset of spatial state that differs from the
// last-transmitted snapshot. Nil fields are not transmitted.
type Delta struct {
	Position        *Point3D
	Orientation     *orientation.Quaternion
	Gain            *float64
	VolumeThreshold *float64
	Attenuation     *float64
	Rolloff         *float64
	InputMuted      *bool
	OtherUserGains  map[string]float64
}

// IsEmpty reports whether the delta carries no fields at all.
func (d *Delta) IsEmpty() bool {
	return d.Position == nil &&
		d.Orientation == nil &&
		d.Gain == nil &&
		d.VolumeThreshold == nil &&
		d.Attenuation == nil &&
		d.Rolloff == nil &&
		d.InputMuted == nil &&
		len(d.OtherUserGains) == 0
}

// Snapshot mirrors the state the server is believed to hold. It is updated
// only from deltas that were confirmed sent. GainHistory accumulates the
// per-peer gains already transmitted so that re-queueing an identical gain
// does not retransmit it.
type Snapshot struct {
	Position        *Point3D
	Orientation     *orientation.Quaternion
	Gain            *float64
	VolumeThreshold *float64
	Attenuation     *float64
	Rolloff         *float64
	InputMuted      *bool
	GainHistory     map[string]float64
}

// Reset forgets everything the server was believed to hold, so the next
// diff reproduces the full current state.
func (s *Snapshot) Reset() {
	*s = Snapshot{}
}

// Absorb folds a successfully transmitted delta into the snapshot.
func (s *Snapshot) Absorb(d *Delta) {
	if d.Position != nil {
		p := *d.Position
		s.Position = &p
	}
	if d.Orientation != nil {
		q := *d.Orientation
		s.Orientation = &q
	}
	if d.Gain != nil {
		g := *d.Gain
		s.Gain = &g
	}
	if d.VolumeThreshold != nil {
		v := *d.VolumeThreshold
		s.VolumeThreshold = &v
	}
	if d.Attenuation != nil {
		a := *d.Attenuation
		s.Attenuation = &a
	}
	if d.Rolloff != nil {
		r := *d.Rolloff
		s.Rolloff = &r
	}
	if d.InputMuted != nil {
		m := *d.InputMuted
		s.InputMuted = &m
	}
	if len(d.OtherUserGains) > 0 {
		if s.GainHistory == nil {
			s.GainHistory = make(map[string]float64, len(d.OtherUserGains))
		}
		for id, g := range d.OtherUserGains {
			s.GainHistory[id] = g
		}
	}
}

// Diff computes the portion of cur that differs from the snapshot. Fields
// the application never set are excluded regardless of the snapshot's
// contents; queued per-peer gains are included only when they differ from
// the transmitted history.
func Diff(cur *State, last *Snapshot) *Delta {
	d := &Delta{}
	if cur.Position != nil && (last.Position == nil || *cur.Position != *last.Position) {
		p := *cur.Position
		d.Position = &p
	}
	if cur.Orientation != nil && (last.Orientation == nil || *cur.Orientation != *last.Orientation) {
		q := *cur.Orientation
		d.Orientation = &q
	}
	if cur.Gain != nil && (last.Gain == nil || *cur.Gain != *last.Gain) {
		g := *cur.Gain
		d.Gain = &g
	}
	if cur.VolumeThreshold != nil && (last.VolumeThreshold == nil || *cur.VolumeThreshold != *last.VolumeThreshold) {
		v := *cur.VolumeThreshold
		d.VolumeThreshold = &v
	}
	if cur.Attenuation != nil && (last.Attenuation == nil || *cur.Attenuation != *last.Attenuation) {
		a := *cur.Attenuation
		d.Attenuation = &a
	}
	if cur.Rolloff != nil && (last.Rolloff == nil || *cur.Rolloff != *last.Rolloff) {
		r := *cur.Rolloff
		d.Rolloff = &r
	}
	if cur.InputMuted != nil && (last.InputMuted == nil || *cur.InputMuted != *last.InputMuted) {
		m := *cur.InputMuted
		d.InputMuted = &m
	}
	for id, g := range cur.OtherUserGains {
		prev, sent := last.GainHistory[id]
		if !sent || prev != g {
			if d.OtherUserGains == nil {
				d.OtherUserGains = make(map[string]float64)
			}
			d.OtherUserGains[id] = g
		}
	}
	return d
}
