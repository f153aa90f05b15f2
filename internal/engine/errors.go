package engine

import "errors"

var (
	// ErrAlreadyRunning is returned by Run when the engine was started before.
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrStopped is returned when an operation needs the loop after it exited.
	ErrStopped = errors.New("engine stopped")
)
