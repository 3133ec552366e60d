package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tazlauanubianca/Crowdsensing/internal/device"
	"github.com/tazlauanubianca/Crowdsensing/internal/location"
	"github.com/tazlauanubianca/Crowdsensing/internal/script"
)

// gate is one Neighbours call index shared by all devices.
type gate struct {
	k       int
	arrived int
	release chan struct{}
	closed  bool

	// Outcome, written before release is closed.
	over       bool
	err        error
	neighbours map[int][]*device.Device
}

func newGate(k int) *gate {
	return &gate{k: k, release: make(chan struct{})}
}

// Supervisor replays a scenario to a set of devices.
type Supervisor struct {
	scenario  *Scenario
	runID     string
	delay     time.Duration
	logger    Logger
	observers []Observer

	devices map[int]*device.Device
	order   []*device.Device

	mu        sync.Mutex
	current   *gate
	aborted   error
	snapshots []RoundSnapshot

	// roundStart and roundScripts describe the round in flight.
	roundStart   time.Time
	roundScripts int
}

func newSupervisor(sc *Scenario, runID string, delay time.Duration, logger Logger, observers []Observer) *Supervisor {
	return &Supervisor{
		scenario:  sc,
		runID:     runID,
		delay:     delay,
		logger:    logger,
		observers: observers,
		devices:   make(map[int]*device.Device),
		current:   newGate(0),
	}
}

// attach registers the devices. It must happen before any device is set up.
func (s *Supervisor) attach(devices []*device.Device) {
	s.order = devices
	for _, d := range devices {
		s.devices[d.ID()] = d
	}
}

// Neighbours blocks until every device has asked, then returns this device's
// neighbours for the next round or device.ErrSimulationOver.
func (s *Supervisor) Neighbours(ctx context.Context, deviceID int) ([]*device.Device, error) {
	s.mu.Lock()
	if s.aborted != nil {
		err := s.aborted
		s.mu.Unlock()
		return nil, err
	}
	if _, ok := s.devices[deviceID]; !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("supervisor: unknown device %d", deviceID)
	}
	g := s.current
	g.arrived++
	last := g.arrived == len(s.order)
	s.mu.Unlock()

	if last {
		s.advance(ctx, g)
	} else {
		select {
		case <-g.release:
		case <-ctx.Done():
			s.abort(g, ctx.Err())
		}
	}

	if g.err != nil {
		return nil, g.err
	}
	if g.over {
		return nil, device.ErrSimulationOver
	}
	return g.neighbours[deviceID], nil
}

// advance runs on the last arrival of gate g while every other device waits.
func (s *Supervisor) advance(ctx context.Context, g *gate) {
	if g.k > 0 {
		s.completeRound(ctx, g.k)
		if s.delay > 0 && g.k < s.scenario.TotalRounds() {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
			}
		}
	}

	over := g.k >= s.scenario.TotalRounds()
	var neighbours map[int][]*device.Device
	if !over {
		neighbours = s.deliver(g.k)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if g.closed {
		return
	}
	if err := ctx.Err(); err != nil {
		g.err = err
		s.aborted = err
	}
	g.over = over
	g.neighbours = neighbours
	g.closed = true
	s.current = newGate(g.k + 1)
	close(g.release)
}

// abort releases every device waiting on g with err. Later calls fail too.
func (s *Supervisor) abort(g *gate, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted == nil {
		s.aborted = err
	}
	if g.closed {
		return
	}
	g.err = err
	g.closed = true
	close(g.release)
}

// deliver assigns round k's scripts and closes every device's batch.
func (s *Supervisor) deliver(k int) map[int][]*device.Device {
	spec := s.scenario.Round(k)

	neighbours := make(map[int][]*device.Device, len(s.order))
	for _, d := range s.order {
		ids := spec.Neighbours[d.ID()]
		list := make([]*device.Device, 0, len(ids))
		for _, id := range ids {
			list = append(list, s.devices[id])
		}
		neighbours[d.ID()] = list
	}

	for _, sp := range spec.Scripts {
		named, err := script.Lookup(sp.Script)
		if err != nil {
			// Validate rejects unknown scripts; reaching here is a bug.
			s.logger.Error("skipping unknown script", "round", k+1, "script", sp.Script)
			continue
		}
		s.devices[sp.Device].AssignScript(named, location.ID(sp.Location))
	}
	for _, d := range s.order {
		d.AssignScript(nil, 0)
	}

	s.mu.Lock()
	s.roundStart = time.Now()
	s.roundScripts = len(spec.Scripts)
	s.mu.Unlock()

	s.logger.Debug("round dispatched", "run_id", s.runID, "round", k+1, "scripts", len(spec.Scripts))
	return neighbours
}

// completeRound snapshots 1-based round n and notifies observers.
func (s *Supervisor) completeRound(ctx context.Context, n int) {
	now := time.Now()

	snap := RoundSnapshot{
		RunID:       s.runID,
		Round:       n,
		CompletedAt: now,
		Devices:     make([]DeviceSnapshot, 0, len(s.order)),
	}
	for _, d := range s.order {
		ds := DeviceSnapshot{ID: d.ID()}
		for loc, v := range d.Readings() {
			ds.Readings = append(ds.Readings, Reading{Location: int(loc), Value: v})
		}
		sortReadings(ds.Readings)
		snap.Devices = append(snap.Devices, ds)
	}

	s.mu.Lock()
	snap.Scripts = s.roundScripts
	snap.Duration = now.Sub(s.roundStart)
	s.snapshots = append(s.snapshots, snap)
	s.mu.Unlock()

	for _, o := range s.observers {
		if err := o.RoundCompleted(ctx, snap); err != nil {
			s.logger.Warn("observer failed", "run_id", s.runID, "round", n, "error", err)
		}
	}
}

// Snapshots returns the completed rounds so far.
func (s *Supervisor) Snapshots() []RoundSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RoundSnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// CompletedRounds returns the number of snapshots taken.
func (s *Supervisor) CompletedRounds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}
