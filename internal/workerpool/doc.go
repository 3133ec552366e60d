// Package workerpool runs tasks on a fixed set of long-lived worker goroutines
// that share one FIFO queue.
//
// Each simulated device owns one Pool. The device goroutine submits one task
// per script assignment and, when the simulation ends, drains the pool:
//
//	pool, err := workerpool.New(8, workerpool.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	_ = pool.Submit(task)
//	pool.DrainAndShutdown() // every submitted task has run, every worker exited
//
// # Shutdown
//
// DrainAndShutdown enqueues exactly one stop sentinel per worker behind any
// pending tasks, waits until every queued item (tasks and sentinels) has been
// acknowledged, then waits for every worker goroutine to return. No task is
// lost and no worker outlives the call.
//
// # Failures
//
// A task that returns an error or panics fails on its own: the failure is
// logged, counted, and handed to the optional error handler, and the worker
// goes back to the queue. A failing task can never stall shutdown.
//
// # Thread Safety
//
// Submit, Stats and DrainAndShutdown are safe for concurrent use.
package workerpool
