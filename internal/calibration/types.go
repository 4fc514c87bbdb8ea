package calibration

import (
	"fmt"
	"strings"
	"time"
)

// Calibration adjusts the curve's target for one monitor.
type Calibration struct {
	Label string `json:"label"`

	// Offset is added to the target percentage.
	Offset int `json:"offset"`

	// MinPercent and MaxPercent bound the result. A zero MaxPercent means
	// no ceiling.
	MinPercent int `json:"min_percent"`
	MaxPercent int `json:"max_percent"`

	// Excluded monitors are never written by the scheduler.
	Excluded bool `json:"excluded"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Default returns the neutral calibration for label.
func Default(label string) Calibration {
	return Calibration{Label: label, MaxPercent: 100}
}

// Validate checks ranges and returns every violation at once.
func (c Calibration) Validate() error {
	var errs []string
	if strings.TrimSpace(c.Label) == "" {
		errs = append(errs, "label is required")
	}
	if c.Offset < -100 || c.Offset > 100 {
		errs = append(errs, fmt.Sprintf("offset %d outside -100..100", c.Offset))
	}
	if c.MinPercent < 0 || c.MinPercent > 100 {
		errs = append(errs, fmt.Sprintf("min_percent %d outside 0..100", c.MinPercent))
	}
	if c.MaxPercent < 0 || c.MaxPercent > 100 {
		errs = append(errs, fmt.Sprintf("max_percent %d outside 0..100", c.MaxPercent))
	}
	if c.MinPercent > c.MaxPercent {
		errs = append(errs, "min_percent is greater than max_percent")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCalibration, strings.Join(errs, "; "))
	}
	return nil
}

// Apply adjusts a target percentage: offset first, then the monitor's
// bounds, then 0..100.
func (c Calibration) Apply(percent int) int {
	p := percent + c.Offset
	lo, hi := c.MinPercent, c.MaxPercent
	if hi <= 0 || hi > 100 {
		hi = 100
	}
	if lo < 0 {
		lo = 0
	}
	if lo > hi {
		lo = hi
	}
	switch {
	case p < lo:
		return lo
	case p > hi:
		return hi
	default:
		return p
	}
}
