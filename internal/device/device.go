package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tazlauanubianca/Crowdsensing/internal/barrier"
	"github.com/tazlauanubianca/Crowdsensing/internal/location"
	"github.com/tazlauanubianca/Crowdsensing/internal/script"
	"github.com/tazlauanubianca/Crowdsensing/internal/workerpool"
)

// Option configures a Device.
type Option func(*Device)

// WithWorkers sets the size of the device's worker pool.
func WithWorkers(n int) Option {
	return func(d *Device) {
		d.workers = n
	}
}

// WithLogger sets the logger for the device and its worker pool.
func WithLogger(logger Logger) Option {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithContext sets the context passed to Supervisor.Neighbours. Cancelling it
// stops the runtime at its next blocking point.
func WithContext(ctx context.Context) Option {
	return func(d *Device) {
		if ctx != nil {
			d.ctx = ctx
		}
	}
}

// WithRetainedScripts makes assignments persist across rounds: each round
// runs every script ever assigned, in assignment order.
func WithRetainedScripts() Option {
	return func(d *Device) {
		d.retain = true
	}
}

// WithKnownLocations declares locations the device covers but has no reading
// for yet. Data reports them as absent until a script writes a result.
func WithKnownLocations(locs ...location.ID) Option {
	return func(d *Device) {
		for _, loc := range locs {
			if _, ok := d.readings[loc]; !ok {
				d.readings[loc] = reading{}
			}
		}
	}
}

// WithErrorHandler registers a callback for script failures, called on the
// worker goroutine. Failures never stop the device; by default they are only
// logged.
func WithErrorHandler(fn func(err error)) Option {
	return func(d *Device) {
		d.onError = fn
	}
}

// reading is one location's value; set is false for a covered location that
// has not been measured yet.
type reading struct {
	value float64
	set   bool
}

// Device is a simulated sensor holding readings for a set of locations.
type Device struct {
	id         int
	supervisor Supervisor
	logger     Logger
	ctx        context.Context
	workers    int
	retain     bool
	onError    func(err error)

	mu       sync.RWMutex
	readings map[location.ID]reading

	mailbox *mailbox
	pool    *workerpool.Pool

	shared      atomic.Pointer[Shared]
	sharedReady chan struct{}
	sharedOnce  sync.Once

	state  atomic.Int32
	rounds atomic.Int64

	errMu sync.Mutex
	err   error

	done chan struct{}
}

// New creates a device and starts its runtime. The runtime waits for
// SetupDevices before asking the supervisor for its first round.
func New(id int, readings map[location.ID]float64, sup Supervisor, opts ...Option) (*Device, error) {
	if sup == nil {
		return nil, fmt.Errorf("%w: device %d: nil supervisor", ErrInvalidDevice, id)
	}

	d := &Device{
		id:          id,
		supervisor:  sup,
		logger:      noopLogger{},
		ctx:         context.Background(),
		workers:     DefaultWorkers,
		readings:    make(map[location.ID]reading, len(readings)),
		sharedReady: make(chan struct{}),
		done:        make(chan struct{}),
	}
	for loc, v := range readings {
		d.readings[loc] = reading{value: v, set: true}
	}
	for _, opt := range opts {
		opt(d)
	}

	pool, err := workerpool.New(d.workers,
		workerpool.WithLogger(d.logger),
		workerpool.WithErrorHandler(d.reportError),
	)
	if err != nil {
		return nil, fmt.Errorf("device %d: %w", id, err)
	}
	d.pool = pool
	d.mailbox = newMailbox(d.retain)

	go d.run()

	return d, nil
}

// ID returns the device identifier.
func (d *Device) ID() int {
	return d.id
}

// String returns a human-readable name for the device.
func (d *Device) String() string {
	return fmt.Sprintf("Device %d", d.id)
}

// Data returns the device's reading for loc, if it holds one.
func (d *Device) Data(loc location.ID) (float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r := d.readings[loc]
	return r.value, r.set
}

// SetData overwrites the reading for loc. It is a no-op when the device does
// not cover loc: devices never gain locations.
func (d *Device) SetData(loc location.ID, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.readings[loc]; ok {
		d.readings[loc] = reading{value: value, set: true}
	}
}

// Readings returns a copy of all present readings. Known locations without a
// value are omitted.
func (d *Device) Readings() map[location.ID]float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[location.ID]float64, len(d.readings))
	for loc, r := range d.readings {
		if r.set {
			out[loc] = r.value
		}
	}
	return out
}

// Locations returns the locations the device covers, sorted.
func (d *Device) Locations() []location.ID {
	d.mu.RLock()
	locs := make([]location.ID, 0, len(d.readings))
	for loc := range d.readings {
		locs = append(locs, loc)
	}
	d.mu.RUnlock()
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	return locs
}

// AssignScript queues s to run for loc in the current round. A nil script
// closes the round: the runtime may dispatch everything assigned so far.
func (d *Device) AssignScript(s script.Script, loc location.ID) {
	if s == nil {
		d.mailbox.closeRound()
		return
	}

	if shared := d.shared.Load(); shared != nil {
		shared.Locks.Ensure(loc)
	}
	d.mailbox.add(Assignment{Script: s, Location: loc})
}

// SetupDevices distributes the shared resources. It must be called on every
// device with the same list. The device with the lowest ID builds the
// barrier and lock table; the others return immediately.
func (d *Device) SetupDevices(devices []*Device) error {
	if len(devices) == 0 {
		return ErrNoDevices
	}

	coordinator := devices[0]
	found := false
	for _, other := range devices {
		if other == d {
			found = true
		}
		if other.id < coordinator.id {
			coordinator = other
		}
	}
	if !found {
		return fmt.Errorf("%w: device %d", ErrNotInSetup, d.id)
	}
	if coordinator != d {
		return nil
	}

	b, err := barrier.New(len(devices))
	if err != nil {
		return fmt.Errorf("device %d: setup: %w", d.id, err)
	}
	shared := &Shared{Barrier: b, Locks: location.NewLockTable()}
	for _, other := range devices {
		for _, loc := range other.Locations() {
			shared.Locks.Ensure(loc)
		}
	}
	for _, other := range devices {
		other.setShared(shared)
	}

	d.logger.Debug("shared resources distributed",
		"coordinator", d.id,
		"devices", len(devices),
		"locations", shared.Locks.Len(),
	)
	return nil
}

func (d *Device) setShared(shared *Shared) {
	d.sharedOnce.Do(func() {
		d.shared.Store(shared)
		close(d.sharedReady)
	})
}

// Shared returns the resources received during setup, or nil before setup.
func (d *Device) Shared() *Shared {
	return d.shared.Load()
}

// Shutdown blocks until the runtime has finished its last round and drained
// its worker pool.
func (d *Device) Shutdown() {
	<-d.done
}

// Done returns a channel closed when the runtime has exited.
func (d *Device) Done() <-chan struct{} {
	return d.done
}

// State returns the runtime's current state.
func (d *Device) State() State {
	return State(d.state.Load())
}

// Rounds returns the number of rounds the device has completed.
func (d *Device) Rounds() int64 {
	return d.rounds.Load()
}

// PoolStats returns the worker pool statistics.
func (d *Device) PoolStats() workerpool.Stats {
	return d.pool.Stats()
}

// Err returns the error that stopped the runtime, or nil for a normal finish.
func (d *Device) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

func (d *Device) setErr(err error) {
	d.errMu.Lock()
	d.err = err
	d.errMu.Unlock()
}

// reportError runs on a worker goroutine; the pool has already logged err.
func (d *Device) reportError(err error) {
	if d.onError != nil {
		d.onError(err)
	}
}
