package workerpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// shutdownWithin fails the test if DrainAndShutdown does not return in time.
func shutdownWithin(t *testing.T, p *Pool, d time.Duration) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		p.DrainAndShutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("DrainAndShutdown() did not return within %v", d)
	}
}

func TestNew_InvalidWorkers(t *testing.T) {
	for _, n := range []int{0, -1} {
		p, err := New(n)
		if !errors.Is(err, ErrInvalidWorkers) {
			t.Errorf("New(%d) error = %v, want ErrInvalidWorkers", n, err)
		}
		if p != nil {
			t.Errorf("New(%d) returned non-nil pool", n)
		}
	}
}

func TestPool_DrainRunsEverySubmittedTask(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		tasks   int
	}{
		{name: "single worker", workers: 1, tasks: 100},
		{name: "more tasks than workers", workers: 4, tasks: 500},
		{name: "more workers than tasks", workers: 16, tasks: 3},
		{name: "no tasks", workers: 8, tasks: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.workers)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			var ran atomic.Int64
			for i := 0; i < tt.tasks; i++ {
				err := p.Submit(TaskFunc(func() error {
					time.Sleep(time.Millisecond)
					ran.Add(1)
					return nil
				}))
				if err != nil {
					t.Fatalf("Submit() error = %v", err)
				}
			}

			shutdownWithin(t, p, 10*time.Second)

			if got := ran.Load(); got != int64(tt.tasks) {
				t.Errorf("ran = %d, want %d", got, tt.tasks)
			}

			stats := p.Stats()
			if stats.Completed != int64(tt.tasks) {
				t.Errorf("Stats().Completed = %d, want %d", stats.Completed, tt.tasks)
			}
			if stats.Stopped != int64(tt.workers) {
				t.Errorf("Stats().Stopped = %d, want %d (one sentinel per worker)", stats.Stopped, tt.workers)
			}
			if stats.Pending != 0 {
				t.Errorf("Stats().Pending = %d, want 0", stats.Pending)
			}
		})
	}
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	shutdownWithin(t, p, 5*time.Second)

	err = p.Submit(TaskFunc(func() error { return nil }))
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Submit() after shutdown error = %v, want ErrPoolClosed", err)
	}
}

func TestPool_SubmitNil(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.DrainAndShutdown()

	if err := p.Submit(nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("Submit(nil) error = %v, want ErrNilTask", err)
	}
}

func TestPool_ShutdownIdempotent(t *testing.T) {
	p, err := New(3)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	shutdownWithin(t, p, 5*time.Second)
	shutdownWithin(t, p, 5*time.Second)

	if got := p.Stats().Stopped; got != 3 {
		t.Errorf("Stats().Stopped = %d, want 3", got)
	}
}

func TestPool_FailingTasksDoNotStopWorkers(t *testing.T) {
	errBoom := errors.New("boom")

	var mu sync.Mutex
	var reported []error
	p, err := New(2, WithErrorHandler(func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var ok atomic.Int64
	for i := 0; i < 10; i++ {
		switch i % 3 {
		case 0:
			_ = p.Submit(TaskFunc(func() error { return errBoom }))
		case 1:
			_ = p.Submit(TaskFunc(func() error { panic("script exploded") }))
		default:
			_ = p.Submit(TaskFunc(func() error {
				ok.Add(1)
				return nil
			}))
		}
	}

	shutdownWithin(t, p, 5*time.Second)

	stats := p.Stats()
	if stats.Failed != 7 {
		t.Errorf("Stats().Failed = %d, want 7", stats.Failed)
	}
	if stats.Completed != 3 || ok.Load() != 3 {
		t.Errorf("completed = %d (ran %d), want 3", stats.Completed, ok.Load())
	}
	if stats.Stopped != 2 {
		t.Errorf("Stats().Stopped = %d, want 2", stats.Stopped)
	}

	mu.Lock()
	defer mu.Unlock()
	var panics, plain int
	for _, err := range reported {
		switch {
		case errors.Is(err, ErrTaskPanicked):
			panics++
		case errors.Is(err, errBoom):
			plain++
		}
	}
	if panics != 3 || plain != 4 {
		t.Errorf("reported panics=%d errors=%d, want 3 and 4", panics, plain)
	}
}

// TestPool_FIFOWithSingleWorker relies on queue order being preserved when
// only one worker consumes it.
func TestPool_FIFOWithSingleWorker(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var order []int
	for i := 0; i < 20; i++ {
		_ = p.Submit(TaskFunc(func() error {
			order = append(order, i)
			return nil
		}))
	}
	shutdownWithin(t, p, 5*time.Second)

	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestPool_ConcurrentSubmitters(t *testing.T) {
	p, err := New(4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var ran atomic.Int64
	var wg sync.WaitGroup
	for s := 0; s < 8; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = p.Submit(TaskFunc(func() error {
					ran.Add(1)
					return nil
				}))
			}
		}()
	}
	wg.Wait()
	shutdownWithin(t, p, 10*time.Second)

	if got := ran.Load(); got != 800 {
		t.Errorf("ran = %d, want 800", got)
	}
	if got := p.Stats().Submitted; got != 800 {
		t.Errorf("Stats().Submitted = %d, want 800", got)
	}
}
