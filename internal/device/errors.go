package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrSimulationOver) {
//	    // the supervisor has no more rounds
//	}
var (
	// ErrSimulationOver is returned by a Supervisor from Neighbours when there
	// are no more rounds. It is the termination signal, not a failure.
	ErrSimulationOver = errors.New("device: simulation over")

	// ErrNoDevices is returned by SetupDevices for an empty device list.
	ErrNoDevices = errors.New("device: no devices to set up")

	// ErrNotInSetup is returned by SetupDevices when the receiver is not part
	// of the device list it was given.
	ErrNotInSetup = errors.New("device: receiver not in device list")

	// ErrInvalidDevice is returned when a device cannot be constructed.
	ErrInvalidDevice = errors.New("device: invalid")
)
