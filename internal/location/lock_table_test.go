package location

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLockTable_EnsureIdempotent(t *testing.T) {
	table := NewLockTable()

	table.Ensure(1)
	first := table.get(1)
	table.Ensure(1)
	table.Ensure(1)

	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
	if table.get(1) != first {
		t.Error("Ensure replaced an existing lock")
	}
}

func TestLockTable_LockCreatesLazily(t *testing.T) {
	table := NewLockTable()

	table.Lock(7)
	table.Unlock(7)

	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

// TestLockTable_ConcurrentEnsureSingleInstance races many goroutines on the
// first insertion of the same location.
func TestLockTable_ConcurrentEnsureSingleInstance(t *testing.T) {
	table := NewLockTable()

	const goroutines = 64
	seen := make([]*sync.Mutex, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			table.Ensure(42)
			seen[idx] = table.get(42)
		}(i)
	}
	wg.Wait()

	for i, lock := range seen {
		if lock != seen[0] {
			t.Fatalf("goroutine %d saw a different lock instance", i)
		}
	}
	if table.Len() != 1 {
		t.Errorf("Len() = %d, want 1", table.Len())
	}
}

func TestLockTable_SameLocationSerialised(t *testing.T) {
	table := NewLockTable()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				table.Lock(0)
				n := inside.Add(1)
				for {
					m := maxInside.Load()
					if n <= m || maxInside.CompareAndSwap(m, n) {
						break
					}
				}
				inside.Add(-1)
				table.Unlock(0)
			}
		}()
	}
	wg.Wait()

	if got := maxInside.Load(); got != 1 {
		t.Errorf("max concurrent holders = %d, want 1", got)
	}
}

func TestLockTable_DistinctLocationsIndependent(t *testing.T) {
	table := NewLockTable()

	table.Lock(1)
	defer table.Unlock(1)

	acquired := make(chan struct{})
	go func() {
		table.Lock(2)
		table.Unlock(2)
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on location 2 blocked behind location 1")
	}
}

func TestID_String(t *testing.T) {
	if got := ID(12).String(); got != "12" {
		t.Errorf("String() = %q, want %q", got, "12")
	}
}
