// Package datasync implements the differential, rate-limited state
// synchronization engine.
//
// The [Engine] owns the participant's current spatial state and a snapshot
// of what the mixer is believed to hold. A transmit computes the delta
// between the two, hands it to the bound [Transmitter], and only then folds
// the sent fields into the snapshot, so a failed send leaves the delta
// intact for the next attempt.
//
// # Rate limiting
//
// Transmissions are coalesced on the trailing edge of a fixed window: the
// first transmit in a window goes out immediately and arms a timer; further
// transmits inside the window only mark that a flush is desired. When the
// timer fires, a single forced transmit carries the values current at fire
// time. Under steady update pressure this yields at most one network send
// per window, always carrying the newest state.
package datasync
