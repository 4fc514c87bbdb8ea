package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// fakeDesktop is an in-memory desktop service keyed by record id.
type fakeDesktop struct {
	mu        sync.Mutex
	available bool
	records   []Record
	native    map[string]int
	calls     int
	failSet   bool
}

func (f *fakeDesktop) Available(context.Context) bool { return f.available }

func (f *fakeDesktop) Detect(context.Context) []Record {
	out := make([]Record, len(f.records))
	copy(out, f.records)
	return out
}

func (f *fakeDesktop) GetBrightness(_ context.Context, rec Record) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return ToPercent(f.native[rec.ID], rec.MaxBrightness), nil
}

func (f *fakeDesktop) SetBrightness(_ context.Context, rec Record, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failSet {
		return ErrNoReply
	}
	if f.native == nil {
		f.native = make(map[string]int)
	}
	f.native[rec.ID] = ToNative(percent, rec.MaxBrightness)
	return nil
}

// fakeBus is an in-memory ddcutil keyed by bus and feature code.
type fakeBus struct {
	mu        sync.Mutex
	missing   bool
	records   []Record
	caps      map[string]Capabilities
	values    map[string]map[vcp.Code]int
	calls     int
	capsCalls int
}

func (f *fakeBus) Detect(context.Context) []Record {
	if f.missing {
		return nil
	}
	out := make([]Record, len(f.records))
	copy(out, f.records)
	return out
}

func (f *fakeBus) Capabilities(_ context.Context, bus string) (Capabilities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capsCalls++
	if f.missing {
		return Capabilities{}, ErrNoReply
	}
	c, ok := f.caps[bus]
	if !ok {
		return Capabilities{}, ErrNoReply
	}
	return c.Clone(), nil
}

func (f *fakeBus) GetValue(_ context.Context, bus string, code vcp.Code) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.missing {
		return 0, fmt.Errorf("%w: ddcutil not installed", ErrNoReply)
	}
	v, ok := f.values[bus][code]
	if !ok {
		return 0, ErrNoReply
	}
	return v, nil
}

func (f *fakeBus) SetValue(_ context.Context, bus string, code vcp.Code, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.missing {
		return fmt.Errorf("%w: ddcutil not installed", ErrNoReply)
	}
	if f.values == nil {
		f.values = make(map[string]map[vcp.Code]int)
	}
	if f.values[bus] == nil {
		f.values[bus] = make(map[vcp.Code]int)
	}
	f.values[bus][code] = value
	return nil
}

// fakeRaw answers on a fixed set of buses.
type fakeRaw struct {
	mu      sync.Mutex
	present map[string]Record
	percent map[string]int
	known   map[string]struct{}
	calls   int
}

func (f *fakeRaw) DetectUnmapped(_ context.Context, known map[string]struct{}) []Record {
	f.known = known
	var out []Record
	for _, bus := range []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"} {
		rec, ok := f.present[bus]
		if !ok {
			continue
		}
		if _, claimed := known[bus]; claimed {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (f *fakeRaw) GetBrightness(_ context.Context, bus string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	v, ok := f.percent[bus]
	if !ok {
		return 0, ErrNoReply
	}
	return v, nil
}

func (f *fakeRaw) SetBrightness(_ context.Context, bus string, percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.percent == nil {
		f.percent = make(map[string]int)
	}
	f.percent[bus] = percent
	return nil
}

func dellCaps() Capabilities {
	return Capabilities{
		Model:       "U2720Q",
		MCCSVersion: "2.1",
		Features: map[vcp.Code]FeatureCapability{
			0x10: {Name: "Brightness"},
			0x12: {Name: "Contrast"},
			0x60: {Name: "Input Source", Values: map[uint8]string{0x0F: "DisplayPort-1", 0x11: "HDMI-1"}},
		},
	}
}
