package history

import (
	"context"
	"time"
)

// Run is one simulation execution.
type Run struct {
	ID        string    `json:"id"`
	Scenario  string    `json:"scenario"`
	Devices   int       `json:"devices"`
	Rounds    int       `json:"rounds"`
	StartedAt time.Time `json:"started_at"`
}

// Reading is one device's value for one location.
type Reading struct {
	DeviceID int     `json:"device_id"`
	Location int     `json:"location"`
	Value    float64 `json:"value"`
}

// Round is the state of every device after a round completed.
type Round struct {
	RunID       string    `json:"run_id"`
	Round       int       `json:"round"`
	Scripts     int       `json:"scripts"`
	CompletedAt time.Time `json:"completed_at"`
	Readings    []Reading `json:"readings"`
}

// Repository stores and retrieves run history.
//
// Implementations must be safe for concurrent use.
type Repository interface {
	// CreateRun records the start of a run.
	CreateRun(ctx context.Context, run Run) error

	// RecordRound stores a completed round and all its readings atomically.
	RecordRound(ctx context.Context, round Round) error

	// ListRuns returns all runs, newest first, with their completed round counts.
	ListRuns(ctx context.Context) ([]Run, error)

	// GetRound returns one round with readings ordered by device then location.
	GetRound(ctx context.Context, runID string, round int) (*Round, error)

	// LocationSeries returns the value of loc on every device across all rounds
	// of a run, ordered by round.
	LocationSeries(ctx context.Context, runID string, loc int) ([]Round, error)
}
