package barrier

import "errors"

// ErrInvalidParties is returned when a barrier is created for fewer than one party.
var ErrInvalidParties = errors.New("barrier: parties must be at least 1")
