package hub

import "errors"

var (
	// ErrUnknownComponent is returned by Route when no handler is registered.
	ErrUnknownComponent = errors.New("hub: unknown component")

	// ErrDuplicateComponent is returned by Register for a component that
	// already has a handler.
	ErrDuplicateComponent = errors.New("hub: component already registered")
)
