package workerpool

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Task is a unit of work run by one worker.
type Task interface {
	Execute() error
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func() error

// Execute calls f.
func (f TaskFunc) Execute() error {
	return f()
}

// Logger defines the logging interface used by the pool.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for task failures and lifecycle events.
func WithLogger(logger Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithErrorHandler sets a callback invoked (on the worker goroutine) for
// every failed task. It must not block.
func WithErrorHandler(fn func(err error)) Option {
	return func(p *Pool) {
		p.onError = fn
	}
}

// Stats is a point-in-time view of the pool counters.
type Stats struct {
	Workers   int   `json:"workers"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"` // tasks that returned nil
	Failed    int64 `json:"failed"`    // tasks that returned an error or panicked
	Stopped   int64 `json:"stopped"`   // stop sentinels acknowledged by exiting workers
	Pending   int   `json:"pending"`   // items queued but not yet picked up
}

// Pool is a fixed-size set of workers consuming a shared task queue.
type Pool struct {
	workers int
	queue   *queue
	wg      sync.WaitGroup
	logger  Logger
	onError func(err error)

	closeMu sync.Mutex
	closed  bool
	once    sync.Once

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	stopped   atomic.Int64
}

// New starts a pool with the given number of workers.
//
// Returns:
//   - *Pool: Running pool
//   - error: ErrInvalidWorkers if workers < 1
func New(workers int, opts ...Option) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, workers)
	}

	p := &Pool{
		workers: workers,
		queue:   newQueue(),
		logger:  noopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work(i)
	}
	return p, nil
}

// Workers returns the number of workers the pool was started with.
func (p *Pool) Workers() int {
	return p.workers
}

// Submit enqueues a task. It never blocks on the workers.
//
// Returns:
//   - error: ErrNilTask for a nil task, ErrPoolClosed once shutdown has started
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.submitted.Add(1)
	p.queue.put(item{task: task})
	return nil
}

// DrainAndShutdown stops the pool once every task submitted before the call
// has run. It enqueues one stop sentinel per worker, waits for the queue to
// be fully acknowledged, then waits for all workers to exit.
//
// Calling it more than once is safe; later calls return immediately after
// the first one has finished.
func (p *Pool) DrainAndShutdown() {
	p.once.Do(func() {
		p.closeMu.Lock()
		p.closed = true
		for i := 0; i < p.workers; i++ {
			p.queue.put(item{stop: true})
		}
		p.closeMu.Unlock()

		p.queue.join()
		p.wg.Wait()

		p.logger.Debug("worker pool stopped",
			"workers", p.workers,
			"completed", p.completed.Load(),
			"failed", p.failed.Load(),
		)
	})
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Stopped:   p.stopped.Load(),
		Pending:   p.queue.pending(),
	}
}

// work is the loop run by each worker goroutine.
func (p *Pool) work(id int) {
	defer p.wg.Done()

	for {
		it := p.queue.get()
		if it.stop {
			p.stopped.Add(1)
			p.queue.done()
			return
		}
		p.run(id, it.task)
		p.queue.done()
	}
}

// run executes one task, converting a panic into a failure.
func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.fail(id, fmt.Errorf("%w: %v", ErrTaskPanicked, r))
		}
	}()

	if err := task.Execute(); err != nil {
		p.fail(id, err)
		return
	}
	p.completed.Add(1)
}

func (p *Pool) fail(id int, err error) {
	p.failed.Add(1)
	p.logger.Warn("task failed", "worker", id, "error", err)
	if p.onError != nil {
		p.onError(err)
	}
}
