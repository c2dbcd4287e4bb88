package monitor

import "errors"

var (
	// ErrClosed is returned by Start once the Manager has been closed.
	ErrClosed = errors.New("monitor: manager closed")

	// ErrInvalidConfig is returned by Start for a zero duration or nil body.
	ErrInvalidConfig = errors.New("monitor: invalid task config")
)
