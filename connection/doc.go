// Package connection implements the lifecycle state machine that sits
// between the public SDK surface and the mixer session.
//
// The machine is split the way it is to make it testable without timers:
//
//   - A pure transition function (machine.reduce) maps (state, event) to
//     (state, effects). It touches no clocks, no sockets and no callbacks;
//     every side effect it wants is returned as data.
//   - The [Manager] is a thin driver that owns the only live timer handles
//     (one retry-window timer, one pause timer), executes effects in order,
//     deduplicates state-change notifications, and translates collaborator
//     results into machine events.
//
// # Blocking contract
//
// [Manager.Connect] blocks until the entire retry sequence settles: it
// returns the init response once the machine reaches Connected, or an error
// once it reaches a terminal Disconnected/Unavailable without having
// connected. The single outstanding pending-open completion is settled
// exactly once; a disconnect issued mid-attempt supersedes it with
// [ErrSuperseded]. [Manager.Disconnect] is idempotent and never fails.
package connection
