package script

import "errors"

// Sentinel errors for script lookup and execution.
var (
	// ErrUnknownScript is returned by Lookup for a name with no registered script.
	ErrUnknownScript = errors.New("script: unknown script")

	// ErrNoValues is returned when a script is run on an empty value set.
	ErrNoValues = errors.New("script: no values")
)
