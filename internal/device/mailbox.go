package device

import (
	"context"
	"sync"
)

// mailbox collects script assignments from the supervisor and hands them to
// the runtime one round at a time. The supervisor appends assignments and
// closes the round; the runtime waits for a closed round and takes it.
type mailbox struct {
	mu       sync.Mutex
	pending  []Assignment
	batches  [][]Assignment
	retain   bool
	retained []Assignment

	// signal has capacity 1; a send means "batches may be non-empty".
	signal chan struct{}
}

func newMailbox(retain bool) *mailbox {
	return &mailbox{
		retain: retain,
		signal: make(chan struct{}, 1),
	}
}

// add queues an assignment for the round currently being delivered.
func (m *mailbox) add(a Assignment) {
	m.mu.Lock()
	m.pending = append(m.pending, a)
	m.mu.Unlock()
}

// closeRound seals the pending assignments into a batch for the runtime.
// With retain set, the batch also carries every assignment of earlier rounds.
func (m *mailbox) closeRound() {
	m.mu.Lock()
	batch := m.pending
	if m.retain {
		batch = append(append([]Assignment(nil), m.retained...), m.pending...)
		m.retained = batch
	}
	m.pending = nil
	m.batches = append(m.batches, batch)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// next blocks until a closed round is available and removes it.
func (m *mailbox) next(ctx context.Context) ([]Assignment, error) {
	for {
		m.mu.Lock()
		if len(m.batches) > 0 {
			batch := m.batches[0]
			m.batches[0] = nil
			m.batches = m.batches[1:]
			m.mu.Unlock()
			return batch, nil
		}
		m.mu.Unlock()

		select {
		case <-m.signal:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
