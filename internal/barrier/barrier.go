package barrier

import (
	"fmt"
	"sync"
)

// phase is one half of the barrier: a countdown guarded by the barrier mutex
// and a semaphore that the last arrival fills with one token per party.
type phase struct {
	remaining int
	release   chan struct{}
}

// Reusable synchronises a fixed number of goroutines across an unbounded
// number of rounds.
type Reusable struct {
	parties int

	mu     sync.Mutex // guards both phase counters
	first  phase
	second phase
}

// New creates a barrier for the given number of parties.
//
// Returns:
//   - *Reusable: Barrier ready for its first round
//   - error: ErrInvalidParties if parties < 1
func New(parties int) (*Reusable, error) {
	if parties < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidParties, parties)
	}
	return &Reusable{
		parties: parties,
		first:   phase{remaining: parties, release: make(chan struct{}, parties)},
		second:  phase{remaining: parties, release: make(chan struct{}, parties)},
	}, nil
}

// Parties returns the number of goroutines that must call Wait per round.
func (b *Reusable) Parties() int {
	return b.parties
}

// Wait blocks until all parties of the current round have called Wait.
func (b *Reusable) Wait() {
	b.pass(&b.first)
	b.pass(&b.second)
}

// pass runs one phase. The caller that drives the counter to zero pushes one
// token per party and resets the counter; every caller then takes a token.
// The release channel has capacity parties, so the sends never block.
func (b *Reusable) pass(p *phase) {
	b.mu.Lock()
	p.remaining--
	if p.remaining == 0 {
		for i := 0; i < b.parties; i++ {
			p.release <- struct{}{}
		}
		p.remaining = b.parties
	}
	b.mu.Unlock()

	<-p.release
}
