package process

import "errors"

var (
	// ErrNotInstalled is returned when the binary cannot be found.
	ErrNotInstalled = errors.New("process: command not installed")

	// ErrTimeout is returned when the command exceeded its deadline.
	ErrTimeout = errors.New("process: command timed out")

	// ErrFailed is returned when the command exited non-zero.
	ErrFailed = errors.New("process: command failed")
)
