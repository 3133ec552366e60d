package device

import (
	"errors"
	"sync"
)

// run is the device's control loop. It owns the round cycle and is the only
// goroutine that submits to the pool.
func (d *Device) run() {
	defer close(d.done)
	defer func() {
		d.pool.DrainAndShutdown()
		d.setState(StateShutdown)
		d.logger.Debug("device stopped", "device", d.id, "rounds", d.rounds.Load())
	}()

	d.setState(StateAwaitingSetup)
	select {
	case <-d.sharedReady:
	case <-d.ctx.Done():
		d.setErr(d.ctx.Err())
		return
	}
	shared := d.shared.Load()

	for {
		d.setState(StateAwaitingNeighbours)
		neighbours, err := d.supervisor.Neighbours(d.ctx, d.id)
		if err != nil {
			if !errors.Is(err, ErrSimulationOver) {
				d.setErr(err)
				d.logger.Error("supervisor failed", "device", d.id, "error", err)
			}
			return
		}

		batch, err := d.mailbox.next(d.ctx)
		if err != nil {
			d.setErr(err)
			return
		}

		d.setState(StateDispatching)
		var round sync.WaitGroup
		for _, a := range batch {
			round.Add(1)
			t := &scriptTask{
				owner:      d,
				neighbours: neighbours,
				assignment: a,
				locks:      shared.Locks,
				done:       round.Done,
			}
			if err := d.pool.Submit(t); err != nil {
				round.Done()
				d.logger.Error("submit failed", "device", d.id, "error", err)
			}
		}

		d.setState(StateAwaitingCompletion)
		round.Wait()

		d.setState(StateBarrier)
		shared.Barrier.Wait()

		n := d.rounds.Add(1)
		d.logger.Debug("round completed", "device", d.id, "round", n, "scripts", len(batch))
	}
}

func (d *Device) setState(s State) {
	d.state.Store(int32(s))
}
