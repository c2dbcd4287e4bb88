package mqtt

import "errors"

// Errors returned by the hub's MQTT client. Check with errors.Is.
var (
	// ErrNotConnected means the broker link is down. Monitors see this on
	// publish while the connection supervisor is reconnecting.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned by Connect; the supervisor retries it.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps a broker-side publish failure. Events are not retried.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when the command topic cannot be subscribed.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels other than 0, 1 and 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects empty topics.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrTimeout marks a broker operation that did not complete in time.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
