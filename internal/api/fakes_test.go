package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// fakeDesktop is an in-memory desktop brightness service.
type fakeDesktop struct {
	mu      sync.Mutex
	records []monitor.Record
	percent map[string]int
}

func (f *fakeDesktop) Available(context.Context) bool { return true }

func (f *fakeDesktop) Detect(context.Context) []monitor.Record {
	out := make([]monitor.Record, len(f.records))
	copy(out, f.records)
	return out
}

func (f *fakeDesktop) GetBrightness(_ context.Context, rec monitor.Record) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.percent[rec.ID], nil
}

func (f *fakeDesktop) SetBrightness(_ context.Context, rec monitor.Record, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.percent[rec.ID] = percent
	return nil
}

func (f *fakeDesktop) get(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.percent[id]
}

// fakeBus is an in-memory bus-level DDC/CI tool.
type fakeBus struct {
	mu      sync.Mutex
	records []monitor.Record
	values  map[vcp.Code]int
	fail    bool
}

func (f *fakeBus) Detect(context.Context) []monitor.Record {
	out := make([]monitor.Record, len(f.records))
	copy(out, f.records)
	return out
}

func (f *fakeBus) Capabilities(_ context.Context, bus string) (monitor.Capabilities, error) {
	for _, r := range f.records {
		if r.I2CBus == bus {
			return r.Capabilities.Clone(), nil
		}
	}
	return monitor.Capabilities{}, fmt.Errorf("%w: bus %s", monitor.ErrNoReply, bus)
}

func (f *fakeBus) GetValue(_ context.Context, bus string, code vcp.Code) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return 0, fmt.Errorf("%w: getvcp %s on bus %s", monitor.ErrNoReply, code, bus)
	}
	return f.values[code], nil
}

func (f *fakeBus) SetValue(_ context.Context, bus string, code vcp.Code, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("%w: setvcp %s on bus %s", monitor.ErrNoReply, code, bus)
	}
	f.values[code] = value
	return nil
}

func (f *fakeBus) setFail(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *fakeBus) value(code vcp.Code) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[code]
}

// testMonitors returns backends describing a DELL panel reachable over both
// the desktop service and DDC/CI, and a built-in panel with no DDC/CI.
func testMonitors() (*fakeDesktop, *fakeBus) {
	desktop := &fakeDesktop{
		records: []monitor.Record{
			{ID: "desktop_0", Label: "DELL U2720Q", Handle: "display0", MaxBrightness: 100, Capabilities: monitor.BrightnessOnly()},
			{ID: "desktop_1", Label: "Built-in Display", Handle: "display1", MaxBrightness: 100, Capabilities: monitor.BrightnessOnly()},
		},
		percent: map[string]int{"desktop_0": 50, "desktop_1": 70},
	}
	bus := &fakeBus{
		records: []monitor.Record{{
			ID:            "4",
			Label:         "DELL U2720Q",
			Model:         "DEL:DELL U2720Q:ABC123",
			I2CBus:        "4",
			MaxBrightness: 100,
			Capabilities: monitor.Capabilities{
				Model: "U2720Q",
				Features: map[vcp.Code]monitor.FeatureCapability{
					0x10: {Name: "Brightness"},
					0x12: {Name: "Contrast"},
					0x60: {Name: "Input Source", Values: map[uint8]string{0x0F: "DP-1", 0x11: "HDMI-1"}},
				},
			},
		}},
		values: map[vcp.Code]int{0x10: 50, 0x12: 75, 0x60: 0x0F},
	}
	return desktop, bus
}
