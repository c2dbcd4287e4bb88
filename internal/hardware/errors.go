package hardware

import "errors"

var (
	// ErrHardware wraps transient failures; the caller may retry on the next poll.
	ErrHardware = errors.New("hardware: operation failed")

	// ErrDetached is returned once a device (or the whole backend) is gone.
	ErrDetached = errors.New("hardware: device detached")

	// ErrUnsupported is returned when the backend cannot perform an operation.
	ErrUnsupported = errors.New("hardware: not supported by backend")

	// ErrInvalidPin is returned for pins the board does not expose.
	ErrInvalidPin = errors.New("hardware: invalid pin")
)

// IsPermanent reports whether err means retrying the same operation is pointless.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrDetached) ||
		errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrInvalidPin)
}
