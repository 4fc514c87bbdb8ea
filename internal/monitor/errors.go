package monitor

import "errors"

// Domain errors for the monitor package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, monitor.ErrNoDDC) {
//	    // the display has no DDC/CI path for this feature
//	}
var (
	// ErrMonitorNotFound is returned when an id is not in the current snapshot.
	ErrMonitorNotFound = errors.New("monitor: not found")

	// ErrNoDDC is returned when a non-brightness feature is requested on a
	// monitor with no DDC/CI bus. It is a real capability gap of the display.
	ErrNoDDC = errors.New("monitor: no DDC/CI available")

	// ErrBackendUnavailable is returned when the record's backend is not configured.
	ErrBackendUnavailable = errors.New("monitor: backend unavailable")

	// ErrInvalidValue is returned for a brightness outside 0..100 or a VCP
	// value outside 0..65535.
	ErrInvalidValue = errors.New("monitor: invalid value")

	// ErrNoReply is returned by drivers when a device or service produced no
	// usable answer (tool failure, timeout, malformed response).
	ErrNoReply = errors.New("monitor: no reply")
)
