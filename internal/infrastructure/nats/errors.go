package nats

import "errors"

// Domain-specific errors for NATS operations.
var (
	// ErrNotConnected is returned when attempting operations on a disconnected client.
	ErrNotConnected = errors.New("nats: client not connected")

	// ErrConnectionFailed is returned when a connection attempt fails.
	ErrConnectionFailed = errors.New("nats: connection failed")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("nats: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails.
	ErrSubscribeFailed = errors.New("nats: subscribe failed")

	// ErrInvalidSubject is returned when an empty subject is provided.
	ErrInvalidSubject = errors.New("nats: subject cannot be empty")
)
