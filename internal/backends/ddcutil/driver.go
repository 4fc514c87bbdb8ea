package ddcutil

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/process"
	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// DefaultBinary is the ddcutil executable looked up on PATH.
const DefaultBinary = "ddcutil"

// Config holds driver settings.
type Config struct {
	// Binary is the ddcutil executable (default "ddcutil").
	Binary string

	// ExtraArgs are prepended to every invocation, e.g. "--sleep-multiplier", "0.5".
	ExtraArgs []string
}

// Driver is the bus-level DDC/CI backend. Each operation is one ddcutil
// invocation bounded by the runner's timeout.
type Driver struct {
	cfg    Config
	runner process.Runner
	locks  *monitor.BusLocks
	logger monitor.Logger
}

// New creates a driver. locks is shared with every other driver that talks
// to the same I2C buses; nil gives the driver a private set.
func New(cfg Config, runner process.Runner, locks *monitor.BusLocks) *Driver {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if locks == nil {
		locks = &monitor.BusLocks{}
	}
	return &Driver{
		cfg:    cfg,
		runner: runner,
		locks:  locks,
		logger: monitor.NoopLogger(),
	}
}

// SetLogger sets the logger for the driver.
func (d *Driver) SetLogger(logger monitor.Logger) {
	d.logger = logger
}

func (d *Driver) run(ctx context.Context, args ...string) (string, error) {
	full := make([]string, 0, len(d.cfg.ExtraArgs)+len(args))
	full = append(full, d.cfg.ExtraArgs...)
	full = append(full, args...)
	out, err := d.runner.Run(ctx, d.cfg.Binary, full...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (d *Driver) runOnBus(ctx context.Context, bus string, args ...string) (string, error) {
	unlock := d.locks.Lock(bus)
	defer unlock()
	return d.run(ctx, append([]string{"--bus", bus}, args...)...)
}

// Detect lists the displays ddcutil can enumerate and fetches capabilities
// for each. A missing or failing ddcutil yields an empty list.
func (d *Driver) Detect(ctx context.Context) []monitor.Record {
	out, err := d.run(ctx, "detect", "--brief")
	if err != nil {
		if errors.Is(err, process.ErrNotInstalled) {
			d.logger.Info("ddcutil not installed, bus-level DDC/CI disabled")
		} else {
			d.logger.Warn("ddcutil detect failed", "error", err)
		}
		return nil
	}

	found := parseDetect(out)
	records := make([]monitor.Record, 0, len(found))
	for _, f := range found {
		rec := monitor.Record{
			ID:            f.bus,
			Label:         f.label(),
			Model:         f.model,
			Backend:       monitor.BackendBusDDC,
			I2CBus:        f.bus,
			MaxBrightness: 100,
		}

		caps, err := d.Capabilities(ctx, f.bus)
		if err != nil {
			d.logger.Warn("ddcutil capabilities failed", "bus", f.bus, "error", err)
			caps = monitor.BrightnessOnly()
		}
		rec.Capabilities = caps

		if _, max, err := d.getValue(ctx, f.bus, vcp.CodeBrightness); err == nil && max > 0 {
			rec.MaxBrightness = max
		}

		records = append(records, rec)
		d.logger.Debug("ddcutil display", "display", f.display, "bus", f.bus, "label", rec.Label)
	}
	return records
}

// Capabilities parses `ddcutil --bus N capabilities`.
func (d *Driver) Capabilities(ctx context.Context, bus string) (monitor.Capabilities, error) {
	out, err := d.runOnBus(ctx, bus, "capabilities")
	if err != nil {
		return monitor.Capabilities{}, fmt.Errorf("%w: capabilities on bus %s: %v", monitor.ErrNoReply, bus, err)
	}
	return parseCapabilities(out), nil
}

// GetValue reads a feature with `ddcutil --bus N getvcp XX`.
func (d *Driver) GetValue(ctx context.Context, bus string, code vcp.Code) (int, error) {
	v, _, err := d.getValue(ctx, bus, code)
	return v, err
}

func (d *Driver) getValue(ctx context.Context, bus string, code vcp.Code) (int, int, error) {
	out, err := d.runOnBus(ctx, bus, "getvcp", code.String())
	if err != nil {
		return 0, 0, fmt.Errorf("%w: getvcp %s on bus %s: %v", monitor.ErrNoReply, code, bus, err)
	}
	current, max, ok := parseValue(out)
	if !ok {
		return 0, 0, fmt.Errorf("%w: unparsable getvcp %s reply on bus %s", monitor.ErrNoReply, code, bus)
	}
	return current, max, nil
}

// SetValue writes a feature with `ddcutil --bus N setvcp XX V`.
func (d *Driver) SetValue(ctx context.Context, bus string, code vcp.Code, value int) error {
	if _, err := d.runOnBus(ctx, bus, "setvcp", code.String(), strconv.Itoa(value)); err != nil {
		return fmt.Errorf("%w: setvcp %s=%d on bus %s: %v", monitor.ErrNoReply, code, value, bus, err)
	}
	d.logger.Info("set VCP feature", "bus", bus, "feature", code.String(), "value", value)
	return nil
}
