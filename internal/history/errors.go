package history

import "errors"

var (
	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("history: run not found")

	// ErrRoundNotFound is returned when a run has no such round.
	ErrRoundNotFound = errors.New("history: round not found")

	// ErrRunExists is returned by CreateRun for a duplicate run ID.
	ErrRunExists = errors.New("history: run already exists")

	// ErrInvalidRun is returned for runs or rounds missing required fields.
	ErrInvalidRun = errors.New("history: invalid run")
)
