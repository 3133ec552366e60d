package simulation

import (
	"context"
	"sort"
	"time"
)

// Reading is one location value held by a device.
type Reading struct {
	Location int     `json:"location"`
	Value    float64 `json:"value"`
}

// DeviceSnapshot is a device's readings at the end of a round, by location.
type DeviceSnapshot struct {
	ID       int       `json:"id"`
	Readings []Reading `json:"readings"`
}

// RoundSnapshot is the state of every device after a round completed.
type RoundSnapshot struct {
	RunID       string           `json:"run_id"`
	Round       int              `json:"round"`
	Scripts     int              `json:"scripts"`
	Duration    time.Duration    `json:"duration_ns"`
	CompletedAt time.Time        `json:"completed_at"`
	Devices     []DeviceSnapshot `json:"devices"`
}

// ReadingCount returns the number of readings across all devices.
func (s RoundSnapshot) ReadingCount() int {
	n := 0
	for _, d := range s.Devices {
		n += len(d.Readings)
	}
	return n
}

// Value returns the reading of deviceID for loc in the snapshot.
func (s RoundSnapshot) Value(deviceID, loc int) (float64, bool) {
	for _, d := range s.Devices {
		if d.ID != deviceID {
			continue
		}
		for _, r := range d.Readings {
			if r.Location == loc {
				return r.Value, true
			}
		}
	}
	return 0, false
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	Scenario  string    `json:"scenario"`
	Devices   int       `json:"devices"`
	Rounds    int       `json:"rounds"`
	StartedAt time.Time `json:"started_at"`
}

// RunSummary describes a run when it ends.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Rounds     int       `json:"rounds"`
	FinishedAt time.Time `json:"finished_at"`
	Err        string    `json:"error,omitempty"`
}

// Observer receives every completed round. Calls happen while all devices are
// parked between rounds, so implementations should return promptly.
type Observer interface {
	RoundCompleted(ctx context.Context, snap RoundSnapshot) error
}

// RunObserver is optionally implemented by observers that track run boundaries.
type RunObserver interface {
	RunStarted(ctx context.Context, info RunInfo) error
	RunFinished(ctx context.Context, summary RunSummary) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, snap RoundSnapshot) error

// RoundCompleted calls f.
func (f ObserverFunc) RoundCompleted(ctx context.Context, snap RoundSnapshot) error {
	return f(ctx, snap)
}

func sortReadings(readings []Reading) {
	sort.Slice(readings, func(i, j int) bool { return readings[i].Location < readings[j].Location })
}
