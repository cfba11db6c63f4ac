package coordinator

import "errors"

var (
	// ErrStopped is returned when an event is offered after Run returned.
	ErrStopped = errors.New("coordinator stopped")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("coordinator already running")
)
