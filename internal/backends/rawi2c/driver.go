package rawi2c

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// Defaults for Config.
const (
	DefaultAdapterFilter = "NVIDIA"
	DefaultReplyDelay    = 50 * time.Millisecond
)

// Config holds driver settings.
type Config struct {
	// AdapterFilter selects adapters whose kernel name contains it
	// (case-insensitive). These are the adapters whose driver lacks the
	// connector mapping the bus-level tool relies on.
	AdapterFilter string

	// SysfsRoot is where adapters are enumerated (default "/sys").
	SysfsRoot string

	// ReplyDelay is how long to wait between a request and reading the reply.
	ReplyDelay time.Duration
}

// Driver talks DDC/CI directly over I2C device nodes. It only handles
// brightness and never raises OS errors past its own boundary.
type Driver struct {
	cfg    Config
	opener Opener
	locks  *monitor.BusLocks
	logger monitor.Logger
	sleep  func(context.Context, time.Duration) error

	mu  sync.Mutex
	max map[string]int // brightness ceiling learned per bus
}

// New creates a driver. locks should be the set shared with the bus-level
// driver; nil gives the driver a private set.
func New(cfg Config, opener Opener, locks *monitor.BusLocks) *Driver {
	if cfg.AdapterFilter == "" {
		cfg.AdapterFilter = DefaultAdapterFilter
	}
	if cfg.SysfsRoot == "" {
		cfg.SysfsRoot = "/sys"
	}
	if cfg.ReplyDelay <= 0 {
		cfg.ReplyDelay = DefaultReplyDelay
	}
	if locks == nil {
		locks = &monitor.BusLocks{}
	}
	return &Driver{
		cfg:    cfg,
		opener: opener,
		locks:  locks,
		logger: monitor.NoopLogger(),
		sleep:  sleepCtx,
		max:    make(map[string]int),
	}
}

// SetLogger sets the logger for the driver.
func (d *Driver) SetLogger(logger monitor.Logger) {
	d.logger = logger
}

func sleepCtx(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DetectUnmapped probes matching adapters that are not in known and returns
// one record per bus with a DDC/CI display answering a brightness query.
func (d *Driver) DetectUnmapped(ctx context.Context, known map[string]struct{}) []monitor.Record {
	adapters, err := ListAdapters(d.cfg.SysfsRoot)
	if err != nil {
		d.logger.Warn("raw i2c adapter enumeration failed", "error", err)
		return nil
	}

	filter := strings.ToLower(d.cfg.AdapterFilter)
	var records []monitor.Record
	for _, a := range adapters {
		if ctx.Err() != nil {
			break
		}
		if !strings.Contains(strings.ToLower(a.Name), filter) {
			continue
		}
		if _, claimed := known[a.Bus]; claimed {
			continue
		}
		rec, ok := d.probe(ctx, a.Bus)
		if !ok {
			continue
		}
		records = append(records, rec)
		d.logger.Info("recovered display over raw i2c", "bus", a.Bus, "adapter", a.Name, "label", rec.Label)
	}
	return records
}

func (d *Driver) probe(ctx context.Context, bus string) (monitor.Record, bool) {
	unlock := d.locks.Lock(bus)
	defer unlock()

	b, err := d.opener.Open(bus)
	if err != nil {
		d.logger.Debug("raw i2c open failed", "bus", bus, "error", err)
		return monitor.Record{}, false
	}
	defer b.Close()

	// Nothing acknowledging at the DDC/CI address means no display here.
	if err := b.Read(AddrDDC, make([]byte, 1)); err != nil {
		return monitor.Record{}, false
	}

	label := ""
	if err := b.Write(AddrEDID, []byte{0x00}); err == nil {
		edid := make([]byte, edidLen)
		if err := b.Read(AddrEDID, edid); err == nil {
			label = productName(edid)
		}
	}
	if label == "" {
		label = "I2C-" + bus + " Display"
	}

	reply, err := d.get(ctx, b, byte(vcp.CodeBrightness))
	if err != nil || reply.max == 0 {
		d.logger.Debug("raw i2c brightness probe failed", "bus", bus, "error", err)
		return monitor.Record{}, false
	}

	d.mu.Lock()
	d.max[bus] = int(reply.max)
	d.mu.Unlock()

	return monitor.Record{
		ID:            "raw_" + bus,
		Label:         label,
		Backend:       monitor.BackendRawDDC,
		I2CBus:        bus,
		MaxBrightness: int(reply.max),
		Capabilities:  monitor.BrightnessOnly(),
	}, true
}

// get performs one VCP Get exchange on an open bus.
func (d *Driver) get(ctx context.Context, b Bus, code byte) (vcpReply, error) {
	if err := b.Write(AddrDDC, getRequest(code)); err != nil {
		return vcpReply{}, fmt.Errorf("writing get request: %w", err)
	}
	if err := d.sleep(ctx, d.cfg.ReplyDelay); err != nil {
		return vcpReply{}, err
	}
	buf := make([]byte, getReplyLen)
	if err := b.Read(AddrDDC, buf); err != nil {
		return vcpReply{}, fmt.Errorf("reading get reply: %w", err)
	}
	reply, checksumOK, err := parseGetReply(buf, code)
	if err != nil {
		return vcpReply{}, err
	}
	if !checksumOK {
		d.logger.Debug("VCP reply checksum mismatch", "feature", fmt.Sprintf("%02X", code))
	}
	return reply, nil
}

// GetBrightness reads brightness and returns it in percent.
func (d *Driver) GetBrightness(ctx context.Context, bus string) (int, error) {
	unlock := d.locks.Lock(bus)
	defer unlock()

	b, err := d.opener.Open(bus)
	if err != nil {
		return 0, fmt.Errorf("%w: bus %s: %v", monitor.ErrNoReply, bus, err)
	}
	defer b.Close()

	reply, err := d.get(ctx, b, byte(vcp.CodeBrightness))
	if err != nil {
		return 0, fmt.Errorf("%w: bus %s: %v", monitor.ErrNoReply, bus, err)
	}

	d.mu.Lock()
	d.max[bus] = int(reply.max)
	d.mu.Unlock()

	return monitor.ToPercent(int(reply.current), int(reply.max)), nil
}

// SetBrightness writes brightness given in percent. The native ceiling comes
// from detection or, failing that, a fresh Get.
func (d *Driver) SetBrightness(ctx context.Context, bus string, percent int) error {
	unlock := d.locks.Lock(bus)
	defer unlock()

	b, err := d.opener.Open(bus)
	if err != nil {
		return fmt.Errorf("%w: bus %s: %v", monitor.ErrNoReply, bus, err)
	}
	defer b.Close()

	d.mu.Lock()
	max, ok := d.max[bus]
	d.mu.Unlock()
	if !ok || max <= 0 {
		reply, err := d.get(ctx, b, byte(vcp.CodeBrightness))
		if err != nil {
			return fmt.Errorf("%w: bus %s: %v", monitor.ErrNoReply, bus, err)
		}
		max = int(reply.max)
		d.mu.Lock()
		d.max[bus] = max
		d.mu.Unlock()
	}

	value := monitor.ToNative(percent, max)
	if err := b.Write(AddrDDC, setRequest(byte(vcp.CodeBrightness), uint16(value))); err != nil {
		return fmt.Errorf("%w: bus %s: writing set request: %v", monitor.ErrNoReply, bus, err)
	}
	// Give the display time to apply before the bus is released.
	if err := d.sleep(ctx, d.cfg.ReplyDelay); err != nil {
		return err
	}

	d.logger.Info("set brightness over raw i2c", "bus", bus, "percent", percent, "value", value)
	return nil
}
