package subscription

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/spatialmix/spatial"
)

// Component tags one field of a peer's spatial state.
type Component uint8

const (
	// ComponentPosition selects the peer's position.
	ComponentPosition Component = iota
	// ComponentOrientation selects the peer's orientation quaternion.
	ComponentOrientation
	// ComponentVolumeDecibels selects the peer's measured volume.
	ComponentVolumeDecibels
	// ComponentGain selects the peer's gain.
	ComponentGain
)

// String returns a human-readable name for the component tag.
func (c Component) String() string {
	switch c {
	case ComponentPosition:
		return "Position"
	case ComponentOrientation:
		return "Orientation"
	case ComponentVolumeDecibels:
		return "VolumeDecibels"
	case ComponentGain:
		return "Gain"
	default:
		return fmt.Sprintf("Component(%d)", uint8(c))
	}
}

// Sentinel errors for subscription registration.
var (
	// ErrNilCallback indicates a subscription without a callback.
	ErrNilCallback = errors.New("subscription callback must not be nil")

	// ErrNoComponents indicates a subscription requesting no components.
	ErrNoComponents = errors.New("subscription must request at least one component")
)

// Subscription describes what peer data an application wants delivered.
// It is created by the application and never mutated by the SDK.
type Subscription struct {
	// ProvidedUserID restricts delivery to updates for one peer identity.
	// Empty matches every peer.
	ProvidedUserID string

	// Components are the state fields the callback wants to see.
	Components []Component

	// Callback receives the filtered updates, at most once per incoming
	// batch and never with an empty slice.
	Callback func(updates []spatial.PeerUpdate)
}

// Router fans incoming peer-update batches out to registered subscriptions.
// Safe for concurrent use.
type Router struct {
	mu   sync.RWMutex
	subs []*Subscription
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{}
}

// Add registers a subscription for the router's lifetime.
func (r *Router) Add(sub *Subscription) error {
	if sub == nil || sub.Callback == nil {
		return ErrNilCallback
	}
	if len(sub.Components) == 0 {
		return ErrNoComponents
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
	logrus.WithFields(logrus.Fields{
		"function":         "Add",
		"provided_user_id": sub.ProvidedUserID,
		"components":       len(sub.Components),
	}).Debug("User data subscription registered")
	return nil
}

// Route delivers one incoming batch to every matching subscription.
func (r *Router) Route(batch []spatial.PeerUpdate) {
	if len(batch) == 0 {
		return
	}
	r.mu.RLock()
	subs := make([]*Subscription, len(r.subs))
	copy(subs, r.subs)
	r.mu.RUnlock()

	for _, sub := range subs {
		var out []spatial.PeerUpdate
		for i := range batch {
			upd := &batch[i]
			if sub.ProvidedUserID != "" && sub.ProvidedUserID != upd.ProvidedUserID {
				continue
			}
			if filtered, ok := filter(upd, sub.Components); ok {
				out = append(out, filtered)
			}
		}
		if len(out) > 0 {
			sub.Callback(out)
		}
	}
}

// filter copies the identity fields plus the requested components that are
// present in the update. It reports false when no requested component was
// present, in which case the peer is omitted from the delivered batch.
func filter(upd *spatial.PeerUpdate, components []Component) (spatial.PeerUpdate, bool) {
	out := spatial.PeerUpdate{
		ProvidedUserID: upd.ProvidedUserID,
		VisitIDHash:    upd.VisitIDHash,
	}
	present := false
	for _, c := range components {
		switch c {
		case ComponentPosition:
			if upd.Position != nil {
				p := *upd.Position
				out.Position = &p
				present = true
			}
		case ComponentOrientation:
			if upd.Orientation != nil {
				q := *upd.Orientation
				out.Orientation = &q
				present = true
			}
		case ComponentVolumeDecibels:
			if upd.VolumeDecibels != nil {
				v := *upd.VolumeDecibels
				out.VolumeDecibels = &v
				present = true
			}
		case ComponentGain:
			if upd.Gain != nil {
				g := *upd.Gain
				out.Gain = &g
				present = true
			}
		}
	}
	return out, present
}
