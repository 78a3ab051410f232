package eps

import "errors"

var (
	// ErrInvalidConfiguration is returned when construction or panel parameters are unusable.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrIndexOutOfRange is returned for switch commands outside [0,NumSwitches).
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrInvalidTimestep is returned for negative or non-finite step durations.
	ErrInvalidTimestep = errors.New("invalid timestep")
	// ErrInvalidSunVector is returned when a sun vector component is NaN or infinite.
	ErrInvalidSunVector = errors.New("invalid sun vector")
	// ErrInputUnavailable is returned when a sun vector source cannot be opened.
	ErrInputUnavailable = errors.New("input unavailable")
)
