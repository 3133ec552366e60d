package simulation

import "errors"

var (
	// ErrInvalidScenario is returned when a scenario fails validation.
	ErrInvalidScenario = errors.New("simulation: invalid scenario")

	// ErrAlreadyStarted is returned by Start on a running simulation.
	ErrAlreadyStarted = errors.New("simulation: already started")

	// ErrNotStarted is returned by Wait and Shutdown before Start.
	ErrNotStarted = errors.New("simulation: not started")
)
