package workerpool

import "sync"

// item is what travels through the queue: either a task or a stop sentinel.
type item struct {
	task Task
	stop bool
}

// queue is an unbounded FIFO with join accounting: every item put must be
// acknowledged with done, and join blocks until nothing is outstanding.
type queue struct {
	mu         sync.Mutex
	notEmpty   *sync.Cond
	drained    *sync.Cond
	items      []item
	unfinished int
}

func newQueue() *queue {
	q := &queue{}
	q.notEmpty = sync.NewCond(&q.mu)
	q.drained = sync.NewCond(&q.mu)
	return q
}

// put appends an item without blocking.
func (q *queue) put(it item) {
	q.mu.Lock()
	q.items = append(q.items, it)
	q.unfinished++
	q.mu.Unlock()
	q.notEmpty.Signal()
}

// get blocks until an item is available and removes it.
func (q *queue) get() item {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		q.notEmpty.Wait()
	}
	it := q.items[0]
	q.items[0] = item{}
	q.items = q.items[1:]
	return it
}

// done acknowledges one item previously returned by get.
func (q *queue) done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.unfinished--
	if q.unfinished <= 0 {
		q.unfinished = 0
		q.drained.Broadcast()
	}
}

// join blocks until every item put so far has been acknowledged.
func (q *queue) join() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.unfinished > 0 {
		q.drained.Wait()
	}
}

// pending returns the number of items waiting to be picked up.
func (q *queue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
