package bridge

import "errors"

var (
	// ErrInvalidCommand is returned for a command payload that names no
	// action or carries an unusable value.
	ErrInvalidCommand = errors.New("bridge: invalid command")

	// ErrInvalidTopic is returned for a command topic without a monitor id.
	ErrInvalidTopic = errors.New("bridge: invalid topic")
)
