package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tazlauanubianca/Crowdsensing/internal/device"
	"github.com/tazlauanubianca/Crowdsensing/internal/location"
	"github.com/tazlauanubianca/Crowdsensing/internal/workerpool"
)

// Logger defines the logging interface used by the simulation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Simulation.
type Options struct {
	// Workers is the pool size of every device. Zero means device.DefaultWorkers.
	Workers int

	// RetainScripts keeps every assigned script running in later rounds.
	RetainScripts bool

	// RoundDelay pauses between rounds.
	RoundDelay time.Duration

	// RunID overrides the generated run identifier.
	RunID string

	Logger    Logger
	Observers []Observer
}

// Status is the lifecycle position of a simulation.
type Status string

// Simulation statuses.
const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// DeviceState is a point-in-time view of one device.
type DeviceState struct {
	ID       int              `json:"id"`
	State    string           `json:"state"`
	Rounds   int64            `json:"rounds"`
	Readings []Reading        `json:"readings"`
	Pool     workerpool.Stats `json:"pool"`
	Err      string           `json:"error,omitempty"`
}

// Simulation owns the devices and supervisor of one scenario run.
type Simulation struct {
	scenario   *Scenario
	opts       Options
	runID      string
	logger     Logger
	supervisor *Supervisor

	mu        sync.RWMutex
	devices   []*device.Device
	status    Status
	startedAt time.Time
	done      chan struct{}
	cancel    context.CancelFunc
	finishErr error
	finished  sync.Once
}

// NewRunID returns a short random run identifier, e.g. "run-1a2b3c4d".
func NewRunID() string {
	return "run-" + uuid.NewString()[:8]
}

// New validates the scenario and prepares a run. Devices are created by Start.
func New(sc *Scenario, opts Options) (*Simulation, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: nil scenario", ErrInvalidScenario)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = device.DefaultWorkers
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("simulation: workers must be positive, got %d", opts.Workers)
	}

	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}

	return &Simulation{
		scenario:   sc,
		opts:       opts,
		runID:      runID,
		logger:     logger,
		supervisor: newSupervisor(sc, runID, opts.RoundDelay, logger, opts.Observers),
		status:     StatusPending,
		done:       make(chan struct{}),
	}, nil
}

// Start creates every device, hands them the shared resources and lets the
// first round begin. Cancelling ctx stops the run between rounds.
func (s *Simulation) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusPending {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.status = StatusRunning
	s.startedAt = time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	devices := make([]*device.Device, 0, len(s.scenario.Devices))
	for _, spec := range s.scenario.Devices {
		d, err := s.newDevice(runCtx, spec)
		if err != nil {
			return s.abortStart(devices, err)
		}
		devices = append(devices, d)
	}
	s.supervisor.attach(devices)

	s.mu.Lock()
	s.devices = devices
	s.mu.Unlock()

	info := RunInfo{
		RunID:     s.runID,
		Scenario:  s.scenario.Name,
		Devices:   len(devices),
		Rounds:    s.scenario.TotalRounds(),
		StartedAt: s.startedAt,
	}
	for _, o := range s.opts.Observers {
		if ro, ok := o.(RunObserver); ok {
			if err := ro.RunStarted(ctx, info); err != nil {
				s.logger.Warn("observer failed on run start", "run_id", s.runID, "error", err)
			}
		}
	}

	for _, d := range devices {
		if err := d.SetupDevices(devices); err != nil {
			return s.abortStart(devices, fmt.Errorf("setting up %s: %w", d, err))
		}
	}

	s.logger.Info("simulation started",
		"run_id", s.runID,
		"scenario", s.scenario.Name,
		"devices", len(devices),
		"rounds", info.Rounds,
		"workers_per_device", s.opts.Workers,
	)

	go s.watch(devices)
	return nil
}

// abortStart stops the devices created so far and finishes the run with err,
// so Wait and Shutdown return instead of blocking on a run that never began.
func (s *Simulation) abortStart(devices []*device.Device, err error) error {
	s.mu.Lock()
	s.devices = devices
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	for _, d := range devices {
		<-d.Done()
	}
	s.finish(err)
	return err
}

func (s *Simulation) newDevice(ctx context.Context, spec DeviceSpec) (*device.Device, error) {
	readings := make(map[location.ID]float64, len(spec.Readings))
	var unmeasured []location.ID
	for loc, v := range spec.Readings {
		if v == nil {
			unmeasured = append(unmeasured, location.ID(loc))
			continue
		}
		readings[location.ID(loc)] = *v
	}

	opts := []device.Option{
		device.WithContext(ctx),
		device.WithWorkers(s.opts.Workers),
		device.WithLogger(s.logger),
		device.WithKnownLocations(unmeasured...),
	}
	if s.opts.RetainScripts {
		opts = append(opts, device.WithRetainedScripts())
	}

	d, err := device.New(spec.ID, readings, s.supervisor, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating device %d: %w", spec.ID, err)
	}
	return d, nil
}

// watch waits for every device runtime to exit and records the outcome.
func (s *Simulation) watch(devices []*device.Device) {
	var errs []error
	for _, d := range devices {
		<-d.Done()
		if err := d.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d, err))
		}
	}
	s.cancel()
	s.finish(errors.Join(errs...))
}

func (s *Simulation) finish(err error) {
	s.finished.Do(func() {
		status := StatusFinished
		if err != nil {
			status = StatusFailed
		}

		s.mu.Lock()
		s.status = status
		s.finishErr = err
		s.mu.Unlock()

		summary := RunSummary{
			RunID:      s.runID,
			Rounds:     s.supervisor.CompletedRounds(),
			FinishedAt: time.Now(),
		}
		if err != nil {
			summary.Err = err.Error()
		}
		for _, o := range s.opts.Observers {
			if ro, ok := o.(RunObserver); ok {
				if oerr := ro.RunFinished(context.Background(), summary); oerr != nil {
					s.logger.Warn("observer failed on run finish", "run_id", s.runID, "error", oerr)
				}
			}
		}

		s.logger.Info("simulation finished",
			"run_id", s.runID,
			"status", status,
			"rounds", summary.Rounds,
			"duration", time.Since(s.startedAt).String(),
		)
		close(s.done)
	})
}

// Wait blocks until the run has finished or ctx is done.
func (s *Simulation) Wait(ctx context.Context) error {
	if s.Status() == StatusPending {
		return ErrNotStarted
	}
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown blocks until every device runtime and worker has exited.
// It returns the run's error, or the first device error if the run has not
// recorded one.
func (s *Simulation) Shutdown() error {
	s.mu.RLock()
	devices := s.devices
	s.mu.RUnlock()

	var g errgroup.Group
	for _, d := range devices {
		g.Go(func() error {
			d.Shutdown()
			if err := d.Err(); err != nil {
				return fmt.Errorf("%s: %w", d, err)
			}
			return nil
		})
	}
	deviceErr := g.Wait()

	if len(devices) > 0 {
		<-s.done
	}
	if err := s.Err(); err != nil {
		return err
	}
	return deviceErr
}

// Done returns a channel closed when the run has finished.
func (s *Simulation) Done() <-chan struct{} {
	return s.done
}

// RunID returns the run identifier.
func (s *Simulation) RunID() string {
	return s.runID
}

// Scenario returns the scenario being played.
func (s *Simulation) Scenario() *Scenario {
	return s.scenario
}

// Status returns the lifecycle status.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Err returns the error that ended the run, or nil.
func (s *Simulation) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finishErr
}

// Rounds returns a snapshot of every completed round.
func (s *Simulation) Rounds() []RoundSnapshot {
	return s.supervisor.Snapshots()
}

// Devices returns the devices of the run, empty before Start.
func (s *Simulation) Devices() []*device.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*device.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// DeviceStates returns a live view of every device.
func (s *Simulation) DeviceStates() []DeviceState {
	devices := s.Devices()
	out := make([]DeviceState, 0, len(devices))
	for _, d := range devices {
		st := DeviceState{
			ID:     d.ID(),
			State:  d.State().String(),
			Rounds: d.Rounds(),
			Pool:   d.PoolStats(),
		}
		for loc, v := range d.Readings() {
			st.Readings = append(st.Readings, Reading{Location: int(loc), Value: v})
		}
		sortReadings(st.Readings)
		if err := d.Err(); err != nil {
			st.Err = err.Error()
		}
		out = append(out, st)
	}
	return out
}
