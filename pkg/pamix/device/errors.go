package device

import "errors"

var (
	// ErrNameNotFound is returned when no device of the class has the given name
	ErrNameNotFound = errors.New("device name not found")

	// ErrIndexNotFound is returned when no device of the class has the given index
	ErrIndexNotFound = errors.New("device index not found")

	// ErrDefaultNotFound is returned when the class has no resolved default device
	ErrDefaultNotFound = errors.New("default device not found")

	// ErrNoDevices is returned when a lookup is attempted on an empty class
	ErrNoDevices = errors.New("no devices")

	// ErrStepStalled is returned when stepping no longer changes the volume
	ErrStepStalled = errors.New("volume step did not change the volume")
)
