package calibration

import "errors"

var (
	// ErrCalibrationNotFound is returned when no calibration exists for a label.
	ErrCalibrationNotFound = errors.New("calibration: not found")

	// ErrProfileNotFound is returned when no profile exists for a label and name.
	ErrProfileNotFound = errors.New("calibration: profile not found")

	// ErrInvalidCalibration is returned when calibration values fail validation.
	ErrInvalidCalibration = errors.New("calibration: invalid")
)
