package powerdevil

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
)

// D-Bus names used by the Plasma brightness service.
const (
	ServiceName    = "org.kde.ScreenBrightness"
	RootPath       = "/org/kde/ScreenBrightness"
	RootInterface  = "org.kde.ScreenBrightness"
	DisplayIface   = "org.kde.ScreenBrightness.Display"
	DefaultTimeout = 2 * time.Second
)

// ErrNotConnected is returned when the session bus cannot be reached.
var ErrNotConnected = errors.New("session bus not connected")

// Config holds driver settings.
type Config struct {
	// Timeout bounds every bus call (default 2s).
	Timeout time.Duration
}

// Driver is the desktop brightness service backend.
type Driver struct {
	cfg    Config
	dial   Dialer
	logger monitor.Logger

	mu   sync.Mutex
	conn Conn
}

// New creates a driver. The connection is opened on first use and reopened
// after it fails.
func New(cfg Config, dial Dialer) *Driver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Driver{
		cfg:    cfg,
		dial:   dial,
		logger: monitor.NoopLogger(),
	}
}

// SetLogger sets the logger for the driver.
func (d *Driver) SetLogger(logger monitor.Logger) {
	d.logger = logger
}

// Close releases the bus connection, if any.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

func (d *Driver) connection() (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return d.conn, nil
	}
	if d.dial == nil {
		return nil, ErrNotConnected
	}
	conn, err := d.dial()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	d.conn = conn
	return conn, nil
}

// reset drops a connection that returned a transport error so the next call
// redials.
func (d *Driver) reset(conn Conn) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == conn {
		_ = conn.Close()
		d.conn = nil
	}
}

// failed drops conn unless err is an error reply from the service.
func (d *Driver) failed(conn Conn, err error) {
	if !isRemoteError(err) {
		d.reset(conn)
	}
}

// Available reports whether the brightness service owns its bus name.
func (d *Driver) Available(ctx context.Context) bool {
	conn, err := d.connection()
	if err != nil {
		d.logger.Debug("desktop brightness service unreachable", "error", err)
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	owned, err := conn.NameHasOwner(ctx, ServiceName)
	if err != nil {
		d.logger.Debug("NameHasOwner failed", "error", err)
		d.failed(conn, err)
		return false
	}
	return owned
}

// Detect lists the service's displays. A display whose properties cannot be
// read is skipped.
func (d *Driver) Detect(ctx context.Context) []monitor.Record {
	conn, err := d.connection()
	if err != nil {
		return nil
	}

	raw, err := d.property(ctx, conn, RootPath, RootInterface, "DisplaysDBusNames")
	if err != nil {
		d.logger.Warn("listing desktop displays failed", "error", err)
		d.failed(conn, err)
		return nil
	}
	names, ok := raw.([]string)
	if !ok {
		d.logger.Warn("unexpected DisplaysDBusNames type", "type", fmt.Sprintf("%T", raw))
		return nil
	}

	var records []monitor.Record
	for i, name := range names {
		rec, err := d.describe(ctx, conn, i, name)
		if err != nil {
			d.logger.Warn("skipping desktop display", "display", name, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (d *Driver) describe(ctx context.Context, conn Conn, position int, name string) (monitor.Record, error) {
	displayPath := path.Join(RootPath, name)

	label, err := d.property(ctx, conn, displayPath, DisplayIface, "Label")
	if err != nil {
		return monitor.Record{}, fmt.Errorf("reading Label: %w", err)
	}
	labelStr, ok := label.(string)
	if !ok {
		return monitor.Record{}, fmt.Errorf("label has type %T", label)
	}

	maxRaw, err := d.property(ctx, conn, displayPath, DisplayIface, "MaxBrightness")
	if err != nil {
		return monitor.Record{}, fmt.Errorf("reading MaxBrightness: %w", err)
	}
	max, ok := toInt(maxRaw)
	if !ok || max <= 0 {
		return monitor.Record{}, fmt.Errorf("invalid MaxBrightness %v", maxRaw)
	}

	// A display that lists but cannot report its level is stale.
	cur, err := d.property(ctx, conn, displayPath, DisplayIface, "Brightness")
	if err != nil {
		return monitor.Record{}, fmt.Errorf("reading Brightness: %w", err)
	}
	if _, ok := toInt(cur); !ok {
		return monitor.Record{}, fmt.Errorf("brightness has type %T", cur)
	}

	return monitor.Record{
		ID:            "desktop_" + displayIndex(name, position),
		Label:         labelStr,
		Backend:       monitor.BackendDesktop,
		MaxBrightness: max,
		Handle:        name,
		Capabilities:  monitor.BrightnessOnly(),
	}, nil
}

// displayIndex extracts N from "displayN", falling back to the list position.
func displayIndex(name string, position int) string {
	digits := strings.TrimLeft(name, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_")
	if _, err := strconv.Atoi(digits); err == nil && digits != "" {
		return digits
	}
	return strconv.Itoa(position)
}

// GetBrightness returns the display's brightness in percent.
func (d *Driver) GetBrightness(ctx context.Context, rec monitor.Record) (int, error) {
	conn, err := d.connection()
	if err != nil {
		d.logger.Warn("desktop brightness service unreachable", "monitor", rec.ID, "error", err)
		return 0, err
	}
	raw, err := d.property(ctx, conn, path.Join(RootPath, rec.Handle), DisplayIface, "Brightness")
	if err != nil {
		d.logger.Warn("desktop Brightness read failed", "monitor", rec.ID, "error", err)
		d.failed(conn, err)
		return 0, fmt.Errorf("%w: %s: %v", monitor.ErrNoReply, rec.ID, err)
	}
	native, ok := toInt(raw)
	if !ok {
		d.logger.Warn("unexpected desktop Brightness type", "monitor", rec.ID, "type", fmt.Sprintf("%T", raw))
		return 0, fmt.Errorf("%w: %s: brightness has type %T", monitor.ErrNoReply, rec.ID, raw)
	}
	return monitor.ToPercent(native, rec.MaxBrightness), nil
}

// SetBrightness sets the display's brightness from a percentage.
func (d *Driver) SetBrightness(ctx context.Context, rec monitor.Record, percent int) error {
	conn, err := d.connection()
	if err != nil {
		d.logger.Warn("desktop brightness service unreachable", "monitor", rec.ID, "error", err)
		return err
	}
	native := monitor.ToNative(percent, rec.MaxBrightness)

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	err = conn.Call(ctx, path.Join(RootPath, rec.Handle), DisplayIface, "SetBrightness", int32(native), uint32(0))
	if err != nil {
		d.logger.Warn("desktop SetBrightness failed", "monitor", rec.ID, "error", err)
		d.failed(conn, err)
		return fmt.Errorf("%w: %s: %v", monitor.ErrNoReply, rec.ID, err)
	}
	d.logger.Debug("desktop brightness set", "monitor", rec.ID, "percent", percent, "native", native)
	return nil
}

func (d *Driver) property(ctx context.Context, conn Conn, objPath, iface, prop string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	return conn.GetProperty(ctx, objPath, iface, prop)
}

// toInt converts the integer types D-Bus may deliver.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int32:
		return int(n), true
	case uint32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case int16:
		return int(n), true
	case uint16:
		return int(n), true
	case uint8:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
