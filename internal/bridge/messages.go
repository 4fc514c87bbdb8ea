package bridge

import "time"

// CurveState is published retained on state/curve.
type CurveState struct {
	Elevation float64   `json:"elevation"`
	Target    int       `json:"target"`
	Enabled   bool      `json:"enabled"`
	Timestamp time.Time `json:"timestamp"`
}

// MonitorState is published retained on state/monitor/{id}. Brightness is
// nil when the value is not known, e.g. for a monitor the schedule skips.
type MonitorState struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Backend    string    `json:"backend"`
	I2CBus     string    `json:"i2c_bus,omitempty"`
	Brightness *int      `json:"brightness"`
	Timestamp  time.Time `json:"timestamp"`
}

// MonitorCommand is received on command/monitor/{id}. Exactly one of
// Brightness or VCP must be set; Value goes with VCP.
type MonitorCommand struct {
	Brightness *int   `json:"brightness,omitempty"`
	VCP        string `json:"vcp,omitempty"`
	Value      *int   `json:"value,omitempty"`
}

// AutoCommand is received on command/auto.
type AutoCommand struct {
	Enabled *bool `json:"enabled"`
}
