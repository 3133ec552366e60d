package location

import "sync"

// LockTable holds exactly one mutex per location for the whole simulation.
type LockTable struct {
	mu    sync.Mutex // guards locks (structure only, never the payload)
	locks map[ID]*sync.Mutex
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{
		locks: make(map[ID]*sync.Mutex),
	}
}

// Ensure inserts a lock for id if none exists yet. It is idempotent.
func (t *LockTable) Ensure(id ID) {
	t.get(id)
}

// Lock acquires the lock for id, creating it first if needed.
func (t *LockTable) Lock(id ID) {
	t.get(id).Lock()
}

// Unlock releases the lock for id.
//
// Unlocking a location that was never locked is a run-time error, as for
// sync.Mutex.
func (t *LockTable) Unlock(id ID) {
	t.get(id).Unlock()
}

// Len returns the number of locations that have a lock.
func (t *LockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// get returns the lock for id, inserting it under the coarse mutex if absent.
func (t *LockTable) get(id ID) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lock, ok := t.locks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	t.locks[id] = lock
	return lock
}
