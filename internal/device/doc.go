// Package device implements the simulated sensing devices and the runtime
// that moves them through synchronised rounds.
//
// Each Device owns readings for a subset of locations and runs one runtime
// goroutine plus a private worker pool. Per round, the runtime:
//
//  1. asks the Supervisor for this round's neighbours
//  2. waits for the round's script assignments (closed by AssignScript(nil, 0))
//  3. submits one task per assignment to its worker pool
//  4. waits until every one of those tasks has executed
//  5. waits on the barrier shared by all devices
//
// A task locks its location in the shared lock table, gathers the readings of
// every neighbour holding that location and then the device's own, runs the
// script, and writes the result back to all of them before unlocking.
//
// # Architecture
//
//	┌───────────────┐  Neighbours()   ┌──────────────────────────────┐
//	│  Supervisor   │◀────────────────│ Device runtime goroutine     │
//	│ (simulation)  │  AssignScript() │  mailbox → pool → barrier    │
//	└───────────────┘────────────────▶└──────────────┬───────────────┘
//	                                                 │ Submit
//	                                  ┌──────────────▼───────────────┐
//	                                  │ workerpool.Pool (K workers)  │
//	                                  │  lock location → run script  │
//	                                  └──────────────────────────────┘
//
// # Setup
//
// Every device must receive the shared resources (barrier and lock table)
// before its first round. Call SetupDevices on each device with the full
// device list; the coordinator (lowest ID) builds the resources and hands the
// same instances to all peers.
//
// # Termination
//
// The runtime stops when the Supervisor returns ErrSimulationOver (or any
// other error) from Neighbours. It then drains its pool, sending one stop
// sentinel per worker, and exits. Shutdown blocks until that has happened.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Readings are additionally
// guarded by a per-device mutex because neighbours' workers write them.
package device
