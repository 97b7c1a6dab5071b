package mixer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pion/webrtc/v3"
)

// defaultSTUNServer is used when the application supplies no ICE override.
const defaultSTUNServer = "stun:stun.l.google.com:19302"

// ICEConfig overrides the STUN/TURN servers used for the peer connection.
// Zero value means "use the default public STUN server".
type ICEConfig struct {
	// STUNURLs are stun:/stuns: server URLs.
	STUNURLs []string

	// TURNURLs are turn:/turns: server URLs.
	TURNURLs []string

	// Username and Credential authenticate against the TURN servers.
	Username   string
	Credential string
}

// Validate checks every URL for a well-formed scheme. A failed validation
// wraps ErrInvalidICEConfiguration.
func (c *ICEConfig) Validate() error {
	if c == nil {
		return nil
	}
	for _, raw := range c.STUNURLs {
		if err := validateICEURL(raw, "stun", "stuns"); err != nil {
			return err
		}
	}
	for _, raw := range c.TURNURLs {
		if err := validateICEURL(raw, "turn", "turns"); err != nil {
			return err
		}
	}
	if len(c.TURNURLs) > 0 && c.Username == "" {
		return fmt.Errorf("%w: TURN servers require a username", ErrInvalidICEConfiguration)
	}
	return nil
}

func validateICEURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidICEConfiguration, raw, err)
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			if u.Opaque == "" && u.Host == "" {
				return fmt.Errorf("%w: %q has no host", ErrInvalidICEConfiguration, raw)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %q: expected scheme %v", ErrInvalidICEConfiguration, raw, schemes)
}

// iceServers converts the override (or the default) into pion's format.
func (c *ICEConfig) iceServers() []webrtc.ICEServer {
	if c == nil || (len(c.STUNURLs) == 0 && len(c.TURNURLs) == 0) {
		return []webrtc.ICEServer{{URLs: []string{defaultSTUNServer}}}
	}
	var servers []webrtc.ICEServer
	if len(c.STUNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.STUNURLs})
	}
	if len(c.TURNURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       c.TURNURLs,
			Username:   c.Username,
			Credential: c.Credential,
		})
	}
	return servers
}

// newPeerConnection builds the peer connection with a receive-only audio
// transceiver (the mixed stream comes downstream only; the upstream
// microphone track is attached by the media layer, not this SDK).
func newPeerConnection(ice *ICEConfig) (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: ice.iceServers(),
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	if _, err := pc.AddTransceiverFromKind(
		webrtc.RTPCodecTypeAudio,
		webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly},
	); err != nil {
		pc.Close()
		return nil, fmt.Errorf("add audio transceiver: %w", err)
	}
	return pc, nil
}
