package device

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tazlauanubianca/Crowdsensing/internal/location"
	"github.com/tazlauanubianca/Crowdsensing/internal/script"
)

// fakeRound is what a fakeSupervisor hands one device for one round.
type fakeRound struct {
	neighbours []int
	scripts    []Assignment
}

// fakeSupervisor replays a fixed per-device round list. Assignments for a
// round are delivered before Neighbours returns.
type fakeSupervisor struct {
	mu      sync.Mutex
	devices map[int]*Device
	rounds  map[int][]fakeRound
	calls   map[int]int
	err     error
}

func newFakeSupervisor(rounds map[int][]fakeRound) *fakeSupervisor {
	return &fakeSupervisor{
		devices: make(map[int]*Device),
		rounds:  rounds,
		calls:   make(map[int]int),
	}
}

func (s *fakeSupervisor) register(devices ...*Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range devices {
		s.devices[d.ID()] = d
	}
}

func (s *fakeSupervisor) Neighbours(_ context.Context, id int) ([]*Device, error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}
	k := s.calls[id]
	s.calls[id] = k + 1
	rounds := s.rounds[id]
	if k >= len(rounds) {
		s.mu.Unlock()
		return nil, ErrSimulationOver
	}
	r := rounds[k]
	self := s.devices[id]
	neighbours := make([]*Device, 0, len(r.neighbours))
	for _, n := range r.neighbours {
		neighbours = append(neighbours, s.devices[n])
	}
	s.mu.Unlock()

	for _, a := range r.scripts {
		self.AssignScript(a.Script, a.Location)
	}
	self.AssignScript(nil, 0)
	return neighbours, nil
}

func newTestDevice(t *testing.T, id int, readings map[location.ID]float64, sup Supervisor, opts ...Option) *Device {
	t.Helper()
	d, err := New(id, readings, sup, opts...)
	if err != nil {
		t.Fatalf("New(%d) error = %v", id, err)
	}
	return d
}

func setupAll(t *testing.T, devices ...*Device) {
	t.Helper()
	for _, d := range devices {
		if err := d.SetupDevices(devices); err != nil {
			t.Fatalf("SetupDevices() on %s error = %v", d, err)
		}
	}
}

func shutdownAll(t *testing.T, devices ...*Device) {
	t.Helper()
	for _, d := range devices {
		select {
		case <-d.Done():
		case <-time.After(5 * time.Second):
			t.Fatalf("%s did not shut down (state %s)", d, d.State())
		}
		d.Shutdown()
	}
}

func average(t *testing.T) script.Script {
	t.Helper()
	s, err := script.Lookup("average")
	if err != nil {
		t.Fatalf("Lookup(average) error = %v", err)
	}
	return s
}

func TestNew_NilSupervisor(t *testing.T) {
	_, err := New(1, nil, nil)
	if !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("New() error = %v, want %v", err, ErrInvalidDevice)
	}
}

func TestNew_InvalidWorkers(t *testing.T) {
	_, err := New(1, nil, newFakeSupervisor(nil), WithWorkers(0))
	if err == nil {
		t.Error("New() with 0 workers should fail")
	}
}

func TestDevice_DataAndSetData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := newTestDevice(t, 3, map[location.ID]float64{1: 4.5}, newFakeSupervisor(nil),
		WithContext(ctx), WithKnownLocations(2))

	if v, ok := d.Data(1); !ok || v != 4.5 {
		t.Errorf("Data(1) = %v, %v; want 4.5, true", v, ok)
	}
	if _, ok := d.Data(2); ok {
		t.Error("Data(2) should be absent before any write")
	}

	d.SetData(2, 7)
	if v, ok := d.Data(2); !ok || v != 7 {
		t.Errorf("Data(2) after SetData = %v, %v; want 7, true", v, ok)
	}

	d.SetData(9, 1)
	if _, ok := d.Data(9); ok {
		t.Error("SetData on an unknown location should be a no-op")
	}

	if got := d.Readings(); len(got) != 2 {
		t.Errorf("Readings() = %v, want 2 entries", got)
	}
	if got := d.Locations(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Locations() = %v, want [1 2]", got)
	}
	if got := d.String(); got != "Device 3" {
		t.Errorf("String() = %q", got)
	}

	cancel()
	d.Shutdown()
	if !errors.Is(d.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", d.Err())
	}
}

func TestSetupDevices(t *testing.T) {
	sup := newFakeSupervisor(nil)
	a := newTestDevice(t, 7, map[location.ID]float64{0: 1}, sup)
	b := newTestDevice(t, 2, map[location.ID]float64{1: 1}, sup)
	c := newTestDevice(t, 5, map[location.ID]float64{2: 1}, sup)
	sup.register(a, b, c)

	if err := a.SetupDevices(nil); !errors.Is(err, ErrNoDevices) {
		t.Errorf("SetupDevices(nil) error = %v, want %v", err, ErrNoDevices)
	}
	if err := a.SetupDevices([]*Device{b, c}); !errors.Is(err, ErrNotInSetup) {
		t.Errorf("SetupDevices(without self) error = %v, want %v", err, ErrNotInSetup)
	}

	// Non-coordinators do nothing on their own.
	if err := a.SetupDevices([]*Device{a, b, c}); err != nil {
		t.Fatalf("SetupDevices() error = %v", err)
	}
	if a.Shared() != nil {
		t.Fatal("shared resources arrived before the coordinator ran setup")
	}

	setupAll(t, a, b, c)

	shared := b.Shared()
	if shared == nil {
		t.Fatal("coordinator has no shared resources")
	}
	for _, d := range []*Device{a, c} {
		if d.Shared() != shared {
			t.Errorf("%s received a different Shared instance", d)
		}
	}
	if got := shared.Barrier.Parties(); got != 3 {
		t.Errorf("Barrier.Parties() = %d, want 3", got)
	}
	if got := shared.Locks.Len(); got != 3 {
		t.Errorf("Locks.Len() = %d, want 3", got)
	}

	shutdownAll(t, a, b, c)
}

func TestDevice_SingleContributorAverage(t *testing.T) {
	avg := average(t)
	sup := newFakeSupervisor(map[int][]fakeRound{
		1: {{neighbours: []int{2, 3}, scripts: []Assignment{{Script: avg, Location: 0}}}},
		2: {{}},
		3: {{}},
	})

	a := newTestDevice(t, 1, map[location.ID]float64{0: 10}, sup)
	b := newTestDevice(t, 2, nil, sup, WithKnownLocations(0))
	c := newTestDevice(t, 3, nil, sup, WithKnownLocations(0))
	sup.register(a, b, c)
	setupAll(t, a, b, c)
	shutdownAll(t, a, b, c)

	for _, d := range []*Device{a, b, c} {
		v, ok := d.Data(0)
		if !ok || v != 10 {
			t.Errorf("%s Data(0) = %v, %v; want 10, true", d, v, ok)
		}
		if d.Rounds() != 1 {
			t.Errorf("%s Rounds() = %d, want 1", d, d.Rounds())
		}
		if d.Err() != nil {
			t.Errorf("%s Err() = %v", d, d.Err())
		}
	}
}

func TestDevice_MutualNeighboursAverage(t *testing.T) {
	avg := average(t)
	sup := newFakeSupervisor(map[int][]fakeRound{
		1: {{neighbours: []int{2}, scripts: []Assignment{{Script: avg, Location: 0}}}},
		2: {{neighbours: []int{1}, scripts: []Assignment{{Script: avg, Location: 0}}}},
	})

	a := newTestDevice(t, 1, map[location.ID]float64{0: 10}, sup)
	b := newTestDevice(t, 2, map[location.ID]float64{0: 20}, sup)
	sup.register(a, b)
	setupAll(t, a, b)
	shutdownAll(t, a, b)

	for _, d := range []*Device{a, b} {
		if v, _ := d.Data(0); v != 15 {
			t.Errorf("%s Data(0) = %v, want 15", d, v)
		}
	}
}

func TestDevice_NoContributorsIsNoop(t *testing.T) {
	var runs atomic.Int32
	counting := script.Func(func(values []float64) (float64, error) {
		runs.Add(1)
		return 0, nil
	})
	sup := newFakeSupervisor(map[int][]fakeRound{
		1: {{scripts: []Assignment{{Script: counting, Location: 4}}}},
	})

	d := newTestDevice(t, 1, map[location.ID]float64{0: 1}, sup)
	sup.register(d)
	setupAll(t, d)
	shutdownAll(t, d)

	if runs.Load() != 0 {
		t.Errorf("script ran %d times with no values, want 0", runs.Load())
	}
}

func TestDevice_SameLocationSerialised(t *testing.T) {
	const (
		devices = 4
		scripts = 25
	)

	var inside, maxInside atomic.Int32
	guarded := script.Func(func(values []float64) (float64, error) {
		n := inside.Add(1)
		for {
			m := maxInside.Load()
			if n <= m || maxInside.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(50 * time.Microsecond)
		inside.Add(-1)
		return values[0], nil
	})

	rounds := make(map[int][]fakeRound, devices)
	all := make([]int, devices)
	for i := range all {
		all[i] = i
	}
	for id := 0; id < devices; id++ {
		r := fakeRound{}
		for _, n := range all {
			if n != id {
				r.neighbours = append(r.neighbours, n)
			}
		}
		for j := 0; j < scripts; j++ {
			r.scripts = append(r.scripts, Assignment{Script: guarded, Location: 0})
		}
		rounds[id] = []fakeRound{r, r}
	}
	sup := newFakeSupervisor(rounds)

	ds := make([]*Device, devices)
	for id := range ds {
		ds[id] = newTestDevice(t, id, map[location.ID]float64{0: float64(id)}, sup, WithWorkers(6))
	}
	sup.register(ds...)
	setupAll(t, ds...)
	shutdownAll(t, ds...)

	if got := maxInside.Load(); got != 1 {
		t.Errorf("max concurrent executions on one location = %d, want 1", got)
	}
	for _, d := range ds {
		stats := d.PoolStats()
		if stats.Completed != 2*scripts {
			t.Errorf("%s completed %d tasks, want %d", d, stats.Completed, 2*scripts)
		}
	}
}

func TestDevice_ScriptErrorIsolated(t *testing.T) {
	boom := errors.New("boom")
	failing := script.Func(func([]float64) (float64, error) { return 0, boom })
	avg := average(t)

	var reported []error
	var mu sync.Mutex
	sup := newFakeSupervisor(map[int][]fakeRound{
		1: {
			{neighbours: []int{2}, scripts: []Assignment{{Script: failing, Location: 0}}},
			{neighbours: []int{2}, scripts: []Assignment{{Script: avg, Location: 0}}},
		},
		2: {{}, {}},
	})

	a := newTestDevice(t, 1, map[location.ID]float64{0: 2}, sup, WithErrorHandler(func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}))
	b := newTestDevice(t, 2, map[location.ID]float64{0: 4}, sup)
	sup.register(a, b)
	setupAll(t, a, b)
	shutdownAll(t, a, b)

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 || !errors.Is(reported[0], boom) {
		t.Fatalf("reported errors = %v, want one wrapping %v", reported, boom)
	}
	if v, _ := b.Data(0); v != 3 {
		t.Errorf("second round did not run after a script error: Data(0) = %v, want 3", v)
	}
	if a.Err() != nil {
		t.Errorf("script errors must not stop the device, Err() = %v", a.Err())
	}
}

func TestDevice_RetainedScripts(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantRun int32
	}{
		{name: "cleared each round", wantRun: 1},
		{name: "retained", opts: []Option{WithRetainedScripts()}, wantRun: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var runs atomic.Int32
			counting := script.Func(func(values []float64) (float64, error) {
				runs.Add(1)
				return values[0], nil
			})
			sup := newFakeSupervisor(map[int][]fakeRound{
				1: {
					{scripts: []Assignment{{Script: counting, Location: 0}}},
					{},
					{},
				},
			})

			d := newTestDevice(t, 1, map[location.ID]float64{0: 1}, sup, tt.opts...)
			sup.register(d)
			setupAll(t, d)
			shutdownAll(t, d)

			if got := runs.Load(); got != tt.wantRun {
				t.Errorf("script ran %d times, want %d", got, tt.wantRun)
			}
		})
	}
}

func TestDevice_Termination(t *testing.T) {
	const workers = 5

	sup := newFakeSupervisor(map[int][]fakeRound{})
	d := newTestDevice(t, 1, map[location.ID]float64{0: 1}, sup, WithWorkers(workers))
	sup.register(d)
	setupAll(t, d)
	shutdownAll(t, d)

	stats := d.PoolStats()
	if stats.Stopped != workers {
		t.Errorf("pool acknowledged %d sentinels, want %d", stats.Stopped, workers)
	}
	if stats.Pending != 0 {
		t.Errorf("pool has %d pending items after shutdown", stats.Pending)
	}
	if d.State() != StateShutdown {
		t.Errorf("State() = %s, want %s", d.State(), StateShutdown)
	}
	if d.Err() != nil {
		t.Errorf("Err() = %v, want nil for a normal finish", d.Err())
	}
}

func TestDevice_SupervisorError(t *testing.T) {
	failure := errors.New("supervisor down")
	sup := newFakeSupervisor(nil)
	sup.err = failure

	d := newTestDevice(t, 1, nil, sup)
	sup.register(d)
	setupAll(t, d)
	shutdownAll(t, d)

	if !errors.Is(d.Err(), failure) {
		t.Errorf("Err() = %v, want %v", d.Err(), failure)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateAwaitingSetup:      "awaiting_setup",
		StateAwaitingNeighbours: "awaiting_neighbours",
		StateDispatching:        "dispatching",
		StateAwaitingCompletion: "awaiting_completion",
		StateBarrier:            "barrier",
		StateShutdown:           "shutdown",
		State(99):               "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestScriptTask_WritesBackToCoveringDevices(t *testing.T) {
	locks := location.NewLockTable()
	owner := &Device{id: 1, readings: map[location.ID]reading{0: {}}}
	measured := &Device{id: 2, readings: map[location.ID]reading{0: {value: 8, set: true}}}
	known := &Device{id: 3, readings: map[location.ID]reading{0: {}}}
	elsewhere := &Device{id: 4, readings: map[location.ID]reading{1: {value: 3, set: true}}}

	var finished bool
	task := &scriptTask{
		owner:      owner,
		neighbours: []*Device{measured, nil, known, elsewhere},
		assignment: Assignment{Script: average(t), Location: 0},
		locks:      locks,
		done:       func() { finished = true },
	}
	if err := task.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !finished {
		t.Error("Execute() did not call done")
	}

	for _, d := range []*Device{owner, measured, known} {
		if v, ok := d.Data(0); !ok || v != 8 {
			t.Errorf("%s Data(0) = %v, %v; want 8, true", d, v, ok)
		}
	}
	if _, ok := elsewhere.Data(0); ok {
		t.Errorf("%s gained location 0", elsewhere)
	}
	if v, _ := elsewhere.Data(1); v != 3 {
		t.Errorf("%s Data(1) = %v, want 3", elsewhere, v)
	}
}
