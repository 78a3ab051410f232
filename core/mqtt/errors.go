package mqtt

import "errors"

var (
	// ErrPublishFailed is returned when every publish attempt failed.
	ErrPublishFailed = errors.New("mqtt publish failed")

	// ErrInvalidCommand is returned for a command payload that cannot be decoded.
	ErrInvalidCommand = errors.New("invalid command payload")
)
