package workerpool

import "errors"

// Sentinel errors for worker pool operations.
var (
	// ErrInvalidWorkers is returned when a pool is created with fewer than one worker.
	ErrInvalidWorkers = errors.New("workerpool: workers must be at least 1")

	// ErrPoolClosed is returned by Submit once DrainAndShutdown has started.
	ErrPoolClosed = errors.New("workerpool: pool is shut down")

	// ErrNilTask is returned by Submit when given a nil task.
	ErrNilTask = errors.New("workerpool: nil task")

	// ErrTaskPanicked wraps the value recovered from a panicking task.
	ErrTaskPanicked = errors.New("workerpool: task panicked")
)
