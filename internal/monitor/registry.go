package monitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// Logger defines the logging interface used by the Registry and the drivers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger returns a Logger that discards everything.
func NoopLogger() Logger {
	return noopLogger{}
}

// DesktopBackend is a desktop session brightness service.
type DesktopBackend interface {
	Available(ctx context.Context) bool
	Detect(ctx context.Context) []Record
	GetBrightness(ctx context.Context, rec Record) (int, error)
	SetBrightness(ctx context.Context, rec Record, percent int) error
}

// BusBackend is DDC/CI addressed by bus through an external tool.
// Values are in the feature's native units.
type BusBackend interface {
	Detect(ctx context.Context) []Record
	Capabilities(ctx context.Context, bus string) (Capabilities, error)
	GetValue(ctx context.Context, bus string, code vcp.Code) (int, error)
	SetValue(ctx context.Context, bus string, code vcp.Code, value int) error
}

// RawBackend is DDC/CI over I2C device nodes, limited to brightness.
type RawBackend interface {
	DetectUnmapped(ctx context.Context, known map[string]struct{}) []Record
	GetBrightness(ctx context.Context, bus string) (int, error)
	SetBrightness(ctx context.Context, bus string, percent int) error
}

// Backends groups the drivers available to a Registry. Any may be nil.
type Backends struct {
	Desktop DesktopBackend
	Bus     BusBackend
	Raw     RawBackend
}

// Registry merges the backends' views of the connected displays into one
// namespace and routes every operation to the backend that owns it.
//
// Detection builds a new immutable Snapshot and swaps it in atomically.
// Operations resolve ids against the current snapshot.
//
// All public methods are safe for concurrent use. Serialising traffic per
// bus is the drivers' job (see BusLocks).
type Registry struct {
	backends Backends
	current  atomic.Pointer[Snapshot]
	logger   Logger
	now      func() time.Time
}

// NewRegistry creates a registry over the given backends.
func NewRegistry(backends Backends) *Registry {
	r := &Registry{
		backends: backends,
		logger:   noopLogger{},
		now:      time.Now,
	}
	r.current.Store(NewSnapshot("", time.Time{}, nil))
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Snapshot returns the result of the most recent detection pass.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Detect runs a full detection pass and replaces the current snapshot.
//
// Steps:
//  1. desktop service records seed the set when the service is available
//  2. bus-level DDC/CI records are detected independently
//  3. desktop records are linked to bus records (see Link)
//  4. without desktop records, the bus records become the set
//  5. raw I2C recovers displays on buses nobody has claimed
//
// A bus counts as claimed when any final record uses it or when the
// bus-level tool enumerated it, even if no desktop record linked to it.
// This keeps raw I2C off buses ddcutil already drives, at the cost that a
// ddcutil display which fails to link is dropped by both paths for this
// pass.
//
// Backend failures shrink the result; they never abort the pass.
func (r *Registry) Detect(ctx context.Context) *Snapshot {
	var desktop []Record
	if d := r.backends.Desktop; d != nil && d.Available(ctx) {
		desktop = d.Detect(ctx)
		for i := range desktop {
			desktop[i].Backend = BackendDesktop
		}
	}

	var bus []Record
	if b := r.backends.Bus; b != nil {
		bus = b.Detect(ctx)
		for i := range bus {
			bus[i].Backend = BackendBusDDC
		}
	}

	var records []Record
	if len(desktop) > 0 {
		records = Link(desktop, bus)
	} else {
		records = bus
	}

	if raw := r.backends.Raw; raw != nil {
		known := NewSnapshot("", time.Time{}, records).Buses()
		for b := range NewSnapshot("", time.Time{}, bus).Buses() {
			known[b] = struct{}{}
		}
		for _, rec := range raw.DetectUnmapped(ctx, known) {
			rec.Backend = BackendRawDDC
			records = append(records, rec)
		}
	}

	snap := NewSnapshot(uuid.NewString(), r.now(), records)
	r.current.Store(snap)

	r.logger.Info("monitor detection complete",
		"pass_id", snap.PassID,
		"monitors", snap.Len(),
		"desktop", len(desktop),
		"bus_ddc", len(bus),
	)
	return snap
}

// Get returns the monitor with id from the current snapshot.
func (r *Registry) Get(id string) (Record, error) {
	rec, ok := r.Snapshot().Get(id)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrMonitorNotFound, id)
	}
	return rec, nil
}

// GetBrightness returns the monitor's brightness in percent.
func (r *Registry) GetBrightness(ctx context.Context, id string) (int, error) {
	return r.GetVCP(ctx, id, vcp.Brightness)
}

// SetBrightness sets the monitor's brightness in percent (0..100).
func (r *Registry) SetBrightness(ctx context.Context, id string, percent int) error {
	return r.SetVCP(ctx, id, vcp.Brightness, percent)
}

// GetVCP reads a feature. Brightness is reported in percent; other features
// in the display's native units.
func (r *Registry) GetVCP(ctx context.Context, id string, feature vcp.Feature) (int, error) {
	rec, err := r.Get(id)
	if err != nil {
		return 0, err
	}

	switch {
	case feature.IsBrightness():
		return r.getBrightness(ctx, rec)
	default:
		if !rec.HasDDC() {
			return 0, fmt.Errorf("%w: %s feature %s", ErrNoDDC, id, feature.Code())
		}
		if r.backends.Bus == nil {
			return 0, fmt.Errorf("%w: %s", ErrBackendUnavailable, BackendBusDDC)
		}
		return r.backends.Bus.GetValue(ctx, rec.I2CBus, feature.Code())
	}
}

// SetVCP writes a feature. Brightness takes a percentage; other features a
// native value in 0..65535.
func (r *Registry) SetVCP(ctx context.Context, id string, feature vcp.Feature, value int) error {
	rec, err := r.Get(id)
	if err != nil {
		return err
	}

	switch {
	case feature.IsBrightness():
		if value < 0 || value > 100 {
			return fmt.Errorf("%w: brightness %d", ErrInvalidValue, value)
		}
		err = r.setBrightness(ctx, rec, value)
	default:
		if value < 0 || value > 0xFFFF {
			return fmt.Errorf("%w: %s value %d", ErrInvalidValue, feature.Code(), value)
		}
		if !rec.HasDDC() {
			return fmt.Errorf("%w: %s feature %s", ErrNoDDC, id, feature.Code())
		}
		if r.backends.Bus == nil {
			return fmt.Errorf("%w: %s", ErrBackendUnavailable, BackendBusDDC)
		}
		err = r.backends.Bus.SetValue(ctx, rec.I2CBus, feature.Code(), value)
	}

	if err != nil {
		r.logger.Warn("monitor write failed", "monitor", id, "feature", feature.String(), "error", err)
		return err
	}
	r.logger.Debug("monitor write", "monitor", id, "feature", feature.String(), "value", value)
	return nil
}

func (r *Registry) getBrightness(ctx context.Context, rec Record) (int, error) {
	switch rec.Backend {
	case BackendDesktop:
		if r.backends.Desktop == nil {
			return 0, fmt.Errorf("%w: %s", ErrBackendUnavailable, rec.Backend)
		}
		return r.backends.Desktop.GetBrightness(ctx, rec)
	case BackendRawDDC:
		if r.backends.Raw == nil {
			return 0, fmt.Errorf("%w: %s", ErrBackendUnavailable, rec.Backend)
		}
		return r.backends.Raw.GetBrightness(ctx, rec.I2CBus)
	default:
		if r.backends.Bus == nil {
			return 0, fmt.Errorf("%w: %s", ErrBackendUnavailable, rec.Backend)
		}
		v, err := r.backends.Bus.GetValue(ctx, rec.I2CBus, vcp.CodeBrightness)
		if err != nil {
			return 0, err
		}
		return ToPercent(v, busMax(rec)), nil
	}
}

func (r *Registry) setBrightness(ctx context.Context, rec Record, percent int) error {
	switch rec.Backend {
	case BackendDesktop:
		if r.backends.Desktop == nil {
			return fmt.Errorf("%w: %s", ErrBackendUnavailable, rec.Backend)
		}
		return r.backends.Desktop.SetBrightness(ctx, rec, percent)
	case BackendRawDDC:
		if r.backends.Raw == nil {
			return fmt.Errorf("%w: %s", ErrBackendUnavailable, rec.Backend)
		}
		return r.backends.Raw.SetBrightness(ctx, rec.I2CBus, percent)
	default:
		if r.backends.Bus == nil {
			return fmt.Errorf("%w: %s", ErrBackendUnavailable, rec.Backend)
		}
		return r.backends.Bus.SetValue(ctx, rec.I2CBus, vcp.CodeBrightness, ToNative(percent, busMax(rec)))
	}
}

// busMax is the brightness ceiling for bus-level records; DDC/CI displays
// almost always report 100.
func busMax(rec Record) int {
	if rec.MaxBrightness > 0 {
		return rec.MaxBrightness
	}
	return 100
}

// Capabilities returns the monitor's capabilities. Monitors with a DDC/CI
// bus are queried afresh; others return their brightness-only stub. When a
// fresh query fails the capabilities recorded at detection are returned.
func (r *Registry) Capabilities(ctx context.Context, id string) (Capabilities, error) {
	rec, err := r.Get(id)
	if err != nil {
		return Capabilities{}, err
	}

	if !rec.HasDDC() || r.backends.Bus == nil {
		if len(rec.Capabilities.Features) == 0 {
			return BrightnessOnly(), nil
		}
		return rec.Capabilities, nil
	}

	caps, err := r.backends.Bus.Capabilities(ctx, rec.I2CBus)
	if err != nil {
		r.logger.Warn("capabilities query failed, using detected set",
			"monitor", id, "bus", rec.I2CBus, "error", err)
		if len(rec.Capabilities.Features) == 0 {
			return BrightnessOnly(), nil
		}
		return rec.Capabilities, nil
	}
	return caps, nil
}
