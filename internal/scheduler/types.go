package scheduler

import (
	"context"
	"time"

	"github.com/DonutsDelivery/auto-brightness/internal/calibration"
	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/solar"
)

// WebSocket channels the scheduler broadcasts on.
const (
	ChannelTick              = "schedule.tick"
	ChannelMonitorDetected   = "monitor.detected"
	ChannelMonitorBrightness = "monitor.brightness"
)

// Skip reasons reported per monitor.
const (
	SkipExcluded  = "excluded"
	SkipDisabled  = "disabled"
	SkipUnchanged = "unchanged"
)

// Monitors is what the scheduler needs from the monitor registry.
type Monitors interface {
	Detect(ctx context.Context) *monitor.Snapshot
	Snapshot() *monitor.Snapshot
	SetBrightness(ctx context.Context, id string, percent int) error
}

// Calibrations lists stored per-monitor calibrations.
type Calibrations interface {
	List(ctx context.Context) ([]calibration.Calibration, error)
}

// StatePublisher publishes retained state after every tick (MQTT).
type StatePublisher interface {
	PublishTick(r Result) error
}

// Telemetry records time series points (InfluxDB).
type Telemetry interface {
	WriteCurve(elevation float64, target int, at time.Time)
	WriteMonitorBrightness(id, label, backend string, percent int, at time.Time)
}

// WSHub broadcasts events to WebSocket clients.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// Sinks are the optional outputs of a tick. Any may be nil.
type Sinks struct {
	State     StatePublisher
	Telemetry Telemetry
	Hub       WSHub
}

// Logger defines the logging interface used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Settings are the user-adjustable parts of the schedule.
type Settings struct {
	Enabled bool       `json:"enabled"`
	Min     float64    `json:"min"`
	Max     float64    `json:"max"`
	Mode    solar.Mode `json:"mode"`
}

// MonitorResult is what one tick did to one monitor.
type MonitorResult struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Backend string `json:"backend"`
	Target  int    `json:"target"`
	Applied bool   `json:"applied"`
	Skipped string `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of one tick.
type Result struct {
	At        time.Time       `json:"at"`
	Elevation float64         `json:"elevation"`
	Target    int             `json:"target"`
	Enabled   bool            `json:"enabled"`
	Monitors  []MonitorResult `json:"monitors"`
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Settings
	IntervalSeconds int            `json:"interval_seconds"`
	Latitude        float64        `json:"latitude"`
	Longitude       float64        `json:"longitude"`
	LastRun         *Result        `json:"last_run,omitempty"`
	NextRun         time.Time      `json:"next_run"`
	Applied         map[string]int `json:"applied"`
	DetectedAt      time.Time      `json:"detected_at"`
}
