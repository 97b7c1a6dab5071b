// Package spatialmix is a client SDK for a real-time spatial-audio mixing
// service.
//
// A [Communicator] maintains a session with the mixer over a WebRTC
// signaling channel, keeps a local model of the user's spatial audio state
// (position, orientation, gain, attenuation), and synchronizes that state
// to the server as rate-limited deltas.
//
// # Getting Started
//
// Create a communicator with options, register callbacks, then connect:
//
//	comm, err := spatialmix.New(spatialmix.NewOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	comm.OnConnectionStateChanged(func(state connection.State, reason string) {
//	    fmt.Printf("connection: %s %s\n", state, reason)
//	})
//
//	resp, err := comm.Connect(ctx, authToken)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("joined space %s as %s\n", resp.SpaceID, resp.VisitIDHash)
//
//	// Move around; updates inside one rate-limit window coalesce into a
//	// single transmission carrying the newest values.
//	comm.UpdateUserDataAndTransmit(spatial.Update{
//	    Position: &spatial.Point3D{X: 1, Y: 0, Z: -2},
//	    OrientationEuler: &orientation.Euler{YawDegrees: 90},
//	})
//
//	defer comm.Disconnect(ctx)
//
// # Subscribing to peer data
//
// When the communicator streams peer data, register subscriptions to
// receive filtered server pushes:
//
//	comm.AddUserDataSubscription(&subscription.Subscription{
//	    Components: []subscription.Component{subscription.ComponentPosition},
//	    Callback: func(updates []spatial.PeerUpdate) {
//	        // Only updates whose position was present arrive here.
//	    },
//	})
//
// # Core Types
//
//   - [Communicator]: the API facade owning connection, sync and routing
//   - [Options]: construction-time configuration with documented defaults
//   - connection.State: the lifecycle state machine's observable states
//   - spatial.Update: an explicit optional-field partial state change
package spatialmix
