// Package location identifies the places devices measure and provides the
// table of per-location locks shared by every device of a simulation.
//
// A location is a plain integer ID. Several devices may hold a reading for the
// same location; any script touching that location must hold its lock while it
// reads from and writes to all of those devices.
//
// # Lock table
//
// LockTable maps location IDs to mutexes. Entries are created lazily, the
// first time any device sees a location, and are never removed, so every
// goroutine touching a location always uses the same mutex instance:
//
//	locks := location.NewLockTable()
//	locks.Ensure(3)
//
//	locks.Lock(3)
//	defer locks.Unlock(3)
//
// # Thread Safety
//
// LockTable is safe for concurrent use. Structural changes (insert-if-absent)
// are guarded by one coarse mutex; the per-location mutexes are independent of
// it and of each other, and give no ordering guarantee across locations.
package location
