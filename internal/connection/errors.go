package connection

import "errors"

// ErrInvalidConfig is returned by Run when the topic or handler is missing.
var ErrInvalidConfig = errors.New("connection: topic and handler are required")
