package mqtt

import "errors"

// Sentinel errors for MQTT operations, checked with errors.Is.
var (
	// ErrNotConnected is returned for operations on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial connect fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps broker-side publish failures and timeouts.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps broker-side subscribe failures and timeouts.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed wraps broker-side unsubscribe failures.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for QoS levels outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
