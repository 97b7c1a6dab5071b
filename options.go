package spatialmix

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/spatialmix/connection"
	"github.com/opd-ai/spatialmix/mixer"
	"github.com/opd-ai/spatialmix/orientation"
)

const (
	// DefaultSignalingHost is the published production signaling endpoint,
	// used when Connect is called without an explicit host.
	DefaultSignalingHost = "signaling.spatialmix.net"

	// DefaultSignalingPort is the published production signaling port.
	DefaultSignalingPort = 443

	// DefaultTransmitRateLimit is the coalescing window for outgoing
	// deltas when the application supplies none.
	DefaultTransmitRateLimit = 50 * time.Millisecond

	// MinTransmitRateLimit is the smallest coalescing window the SDK
	// accepts; shorter configured windows are raised to it.
	MinTransmitRateLimit = 10 * time.Millisecond
)

// Options configures a Communicator. Construct with NewOptions and adjust;
// the zero value of individual fields keeps the documented default.
type Options struct {
	// Axes binds pitch/yaw/roll to world axes. Validated at construction.
	Axes orientation.AxesConfiguration

	// EulerOrder is the rotation composition order applied when the
	// application supplies orientations as Euler angles.
	EulerOrder orientation.Order

	// RetryPolicy governs automatic connection retries.
	RetryPolicy connection.RetryPolicy

	// TransmitRateLimit is the delta coalescing window, never below
	// MinTransmitRateLimit.
	TransmitRateLimit time.Duration

	// ServerShouldSendUserData asks the mixer to stream other
	// participants' data. When false, user data subscriptions are
	// rejected.
	ServerShouldSendUserData bool

	// ICE optionally overrides the STUN/TURN servers used for the peer
	// connection. Validated at construction.
	ICE *mixer.ICEConfig
}

// NewOptions returns the default configuration: Y-up right-handed axes,
// YawPitchRoll Euler order, no automatic retries, a 50 ms transmit window,
// peer data streaming enabled.
func NewOptions() *Options {
	return &Options{
		Axes:                     orientation.DefaultAxesConfiguration(),
		EulerOrder:               orientation.OrderYawPitchRoll,
		RetryPolicy:              connection.DefaultRetryPolicy(),
		TransmitRateLimit:        DefaultTransmitRateLimit,
		ServerShouldSendUserData: true,
	}
}

// validate checks the configuration and normalizes the rate limit. A
// failed validation is fatal to construction.
func (o *Options) validate() error {
	if err := o.Axes.Validate(); err != nil {
		return err
	}
	if !o.EulerOrder.Valid() {
		return fmt.Errorf("%w: %v", orientation.ErrInvalidEulerOrder, o.EulerOrder)
	}
	if o.TransmitRateLimit <= 0 {
		o.TransmitRateLimit = DefaultTransmitRateLimit
	} else if o.TransmitRateLimit < MinTransmitRateLimit {
		logrus.WithFields(logrus.Fields{
			"function":   "validate",
			"configured": o.TransmitRateLimit,
			"minimum":    MinTransmitRateLimit,
		}).Warn("Transmit rate limit below minimum, raising")
		o.TransmitRateLimit = MinTransmitRateLimit
	}
	return nil
}
