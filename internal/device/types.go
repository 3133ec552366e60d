package device

import (
	"context"

	"github.com/tazlauanubianca/Crowdsensing/internal/barrier"
	"github.com/tazlauanubianca/Crowdsensing/internal/location"
	"github.com/tazlauanubianca/Crowdsensing/internal/script"
)

// DefaultWorkers is the number of pool workers per device when not configured.
const DefaultWorkers = 8

// Supervisor is the external collaborator that drives rounds.
type Supervisor interface {
	// Neighbours blocks until the device's next round can start and returns
	// the devices it shares data with in that round. It returns
	// ErrSimulationOver when there are no more rounds.
	//
	// For a given call index every device must get the same outcome: either
	// all receive neighbours or all receive an error. A device that stops
	// alone leaves its peers waiting at a barrier sized for every device.
	Neighbours(ctx context.Context, deviceID int) ([]*Device, error)
}

// Shared holds the resources common to every device of a simulation.
// One instance is created by the coordinator and distributed by reference.
type Shared struct {
	Barrier *barrier.Reusable
	Locks   *location.LockTable
}

// Assignment is one script to run for one location during a round.
type Assignment struct {
	Script   script.Script
	Location location.ID
}

// State is the position of a device runtime in its round cycle.
type State int32

// Runtime states.
const (
	StateAwaitingSetup State = iota
	StateAwaitingNeighbours
	StateDispatching
	StateAwaitingCompletion
	StateBarrier
	StateShutdown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAwaitingSetup:
		return "awaiting_setup"
	case StateAwaitingNeighbours:
		return "awaiting_neighbours"
	case StateDispatching:
		return "dispatching"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateBarrier:
		return "barrier"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Logger defines the logging interface used by devices.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
