package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

func TestRegistry_DetectLinksDesktopAndDDC(t *testing.T) {
	desktop := &fakeDesktop{
		available: true,
		records:   []Record{{ID: "desktop_0", Label: "DELL U2720Q", MaxBrightness: 10000, Capabilities: BrightnessOnly()}},
	}
	bus := &fakeBus{
		records: []Record{{ID: "7", Label: "U2720Q", Model: "DEL:U2720Q:ABC123", I2CBus: "7", MaxBrightness: 100, Capabilities: dellCaps()}},
	}
	raw := &fakeRaw{}

	r := NewRegistry(Backends{Desktop: desktop, Bus: bus, Raw: raw})
	snap := r.Detect(context.Background())

	if snap.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", snap.Len())
	}
	rec, ok := snap.Get("desktop_0")
	if !ok {
		t.Fatal("desktop_0 missing")
	}
	if rec.Backend != BackendDesktop || rec.I2CBus != "7" {
		t.Errorf("record = %+v, want desktop_service on bus 7", rec)
	}
	if !hasFeature(rec.Capabilities, vcp.CodeContrast) {
		t.Error("capabilities not populated from DDC record")
	}
	if _, claimed := raw.known["7"]; !claimed {
		t.Errorf("raw probe known set = %v, want bus 7 claimed", raw.known)
	}
	if snap.PassID == "" {
		t.Error("PassID not set")
	}
}

func TestRegistry_DetectRawOnly(t *testing.T) {
	// Bus tool absent, desktop service unavailable, bus 3 answers raw DDC/CI.
	desktop := &fakeDesktop{available: false}
	bus := &fakeBus{missing: true}
	raw := &fakeRaw{
		present: map[string]Record{"3": {ID: "raw_3", Label: "VG27A", I2CBus: "3", MaxBrightness: 100, Capabilities: BrightnessOnly()}},
		percent: map[string]int{"3": 50},
	}

	r := NewRegistry(Backends{Desktop: desktop, Bus: bus, Raw: raw})
	snap := r.Detect(context.Background())

	if snap.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", snap.Len())
	}
	rec := snap.List()[0]
	if rec.Backend != BackendRawDDC || rec.I2CBus != "3" {
		t.Errorf("record = %+v, want raw_ddc on bus 3", rec)
	}

	got, err := r.GetBrightness(context.Background(), rec.ID)
	if err != nil || got != 50 {
		t.Errorf("GetBrightness = %d, %v; want 50", got, err)
	}

	if _, err := r.GetVCP(context.Background(), rec.ID, vcp.Other(vcp.CodeContrast)); err == nil {
		t.Error("GetVCP(contrast) on raw-only monitor should fail")
	}
}

func TestRegistry_DetectFallsBackToBus(t *testing.T) {
	bus := &fakeBus{
		records: []Record{
			{ID: "7", Label: "U2720Q", Model: "DEL:U2720Q:1", I2CBus: "7", MaxBrightness: 100},
			{ID: "8", Label: "27UN850", Model: "GSM:27UN850:2", I2CBus: "8", MaxBrightness: 100},
		},
	}
	desktop := &fakeDesktop{available: true} // available but no displays

	r := NewRegistry(Backends{Desktop: desktop, Bus: bus})
	snap := r.Detect(context.Background())

	if snap.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", snap.Len())
	}
	for _, rec := range snap.List() {
		if rec.Backend != BackendBusDDC {
			t.Errorf("%s backend = %s, want bus_ddc", rec.ID, rec.Backend)
		}
	}
}

func TestRegistry_DetectReplacesSnapshot(t *testing.T) {
	bus := &fakeBus{records: []Record{{ID: "7", Model: "A:MODELONE:1", I2CBus: "7"}}}
	r := NewRegistry(Backends{Bus: bus})

	first := r.Detect(context.Background())
	bus.records = []Record{{ID: "8", Model: "A:MODELTWO:1", I2CBus: "8"}}
	second := r.Detect(context.Background())

	if _, ok := r.Snapshot().Get("7"); ok {
		t.Error("monitor 7 survived a detection pass that no longer reports it")
	}
	if _, ok := first.Get("7"); !ok {
		t.Error("earlier snapshot was mutated")
	}
	if first.PassID == second.PassID {
		t.Error("passes share a PassID")
	}
}

func TestRegistry_RawSkipsEnumeratedBuses(t *testing.T) {
	// Desktop present but unlinked; bus 7 is still known to the bus tool.
	desktop := &fakeDesktop{available: true, records: []Record{{ID: "desktop_0", Label: "Built-in", MaxBrightness: 255}}}
	bus := &fakeBus{records: []Record{{ID: "7", Model: "DEL:U2720Q:1", I2CBus: "7"}}}
	raw := &fakeRaw{present: map[string]Record{
		"7": {ID: "raw_7", I2CBus: "7"},
		"3": {ID: "raw_3", I2CBus: "3"},
	}}

	r := NewRegistry(Backends{Desktop: desktop, Bus: bus, Raw: raw})
	snap := r.Detect(context.Background())

	if _, ok := snap.Get("raw_7"); ok {
		t.Error("raw driver claimed a bus the bus tool enumerated")
	}
	if _, ok := snap.Get("raw_3"); !ok {
		t.Error("raw_3 missing")
	}
}

func TestRegistry_UnknownIDNoIO(t *testing.T) {
	desktop := &fakeDesktop{available: true}
	bus := &fakeBus{}
	raw := &fakeRaw{}
	r := NewRegistry(Backends{Desktop: desktop, Bus: bus, Raw: raw})
	r.Detect(context.Background())

	err := r.SetBrightness(context.Background(), "nope", 40)
	if !errors.Is(err, ErrMonitorNotFound) {
		t.Errorf("SetBrightness error = %v, want ErrMonitorNotFound", err)
	}
	if _, err := r.GetVCP(context.Background(), "nope", vcp.Other(0x12)); !errors.Is(err, ErrMonitorNotFound) {
		t.Errorf("GetVCP error = %v, want ErrMonitorNotFound", err)
	}
	if _, err := r.Capabilities(context.Background(), "nope"); !errors.Is(err, ErrMonitorNotFound) {
		t.Errorf("Capabilities error = %v, want ErrMonitorNotFound", err)
	}
	if desktop.calls+bus.calls+bus.capsCalls+raw.calls != 0 {
		t.Errorf("backends called %d times for unknown id", desktop.calls+bus.calls+bus.capsCalls+raw.calls)
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	ctx := context.Background()
	desktop := &fakeDesktop{
		available: true,
		records: []Record{
			{ID: "desktop_0", Label: "DELL U2720Q", MaxBrightness: 10000},
			{ID: "desktop_1", Label: "Built-in Display", MaxBrightness: 255},
		},
	}
	bus := &fakeBus{
		records: []Record{{ID: "7", Model: "DEL:U2720Q:ABC123", I2CBus: "7", MaxBrightness: 100, Capabilities: dellCaps()}},
		values:  map[string]map[vcp.Code]int{"7": {vcp.CodeContrast: 75}},
	}
	r := NewRegistry(Backends{Desktop: desktop, Bus: bus})
	r.Detect(ctx)

	t.Run("linked brightness uses desktop", func(t *testing.T) {
		before := bus.calls
		if err := r.SetBrightness(ctx, "desktop_0", 42); err != nil {
			t.Fatalf("SetBrightness: %v", err)
		}
		if bus.calls != before {
			t.Error("brightness on a desktop record went to the bus driver")
		}
		if desktop.native["desktop_0"] != 4200 {
			t.Errorf("native = %d, want 4200", desktop.native["desktop_0"])
		}
	})

	t.Run("linked contrast uses bus", func(t *testing.T) {
		v, err := r.GetVCP(ctx, "desktop_0", vcp.Other(vcp.CodeContrast))
		if err != nil || v != 75 {
			t.Errorf("GetVCP = %d, %v; want 75", v, err)
		}
		if err := r.SetVCP(ctx, "desktop_0", vcp.Other(vcp.CodeInputSource), 0x11); err != nil {
			t.Errorf("SetVCP input: %v", err)
		}
		if bus.values["7"][vcp.CodeInputSource] != 0x11 {
			t.Error("input source not written to bus 7")
		}
	})

	t.Run("desktop-only contrast is a capability gap", func(t *testing.T) {
		_, err := r.GetVCP(ctx, "desktop_1", vcp.Other(vcp.CodeContrast))
		if !errors.Is(err, ErrNoDDC) {
			t.Errorf("GetVCP error = %v, want ErrNoDDC", err)
		}
		err = r.SetVCP(ctx, "desktop_1", vcp.Other(vcp.CodeContrast), 10)
		if !errors.Is(err, ErrNoDDC) {
			t.Errorf("SetVCP error = %v, want ErrNoDDC", err)
		}
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		if err := r.SetBrightness(ctx, "desktop_0", 101); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("SetBrightness(101) error = %v", err)
		}
		if err := r.SetVCP(ctx, "desktop_0", vcp.Other(0x12), -1); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("SetVCP(-1) error = %v", err)
		}
	})

	t.Run("capabilities requeried for linked monitor", func(t *testing.T) {
		before := bus.capsCalls
		bus.caps = map[string]Capabilities{"7": dellCaps()}
		caps, err := r.Capabilities(ctx, "desktop_0")
		if err != nil {
			t.Fatalf("Capabilities: %v", err)
		}
		if bus.capsCalls != before+1 {
			t.Error("capabilities not fetched from the bus driver")
		}
		if !hasFeature(caps, vcp.CodeInputSource) {
			t.Error("fresh capabilities missing input source")
		}
	})

	t.Run("desktop-only capabilities are a stub", func(t *testing.T) {
		caps, err := r.Capabilities(ctx, "desktop_1")
		if err != nil {
			t.Fatalf("Capabilities: %v", err)
		}
		if len(caps.Features) != 1 || !hasFeature(caps, vcp.CodeBrightness) {
			t.Errorf("stub = %+v, want brightness only", caps.Features)
		}
	})
}

func TestRegistry_BusBrightness(t *testing.T) {
	ctx := context.Background()
	bus := &fakeBus{records: []Record{{ID: "7", Model: "DEL:U2720Q:1", I2CBus: "7", MaxBrightness: 100}}}
	r := NewRegistry(Backends{Bus: bus})
	r.Detect(ctx)

	if err := r.SetBrightness(ctx, "7", 42); err != nil {
		t.Fatalf("SetBrightness: %v", err)
	}
	got, err := r.GetBrightness(ctx, "7")
	if err != nil || got != 42 {
		t.Errorf("GetBrightness = %d, %v; want 42", got, err)
	}
}

func TestRegistry_DesktopRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, max := range []int{100, 255, 1000, 10000, 937} {
		desktop := &fakeDesktop{
			available: true,
			records:   []Record{{ID: "desktop_0", Label: "Panel", MaxBrightness: max}},
		}
		r := NewRegistry(Backends{Desktop: desktop})
		r.Detect(ctx)

		for p := 0; p <= 100; p++ {
			if err := r.SetBrightness(ctx, "desktop_0", p); err != nil {
				t.Fatalf("max %d SetBrightness(%d): %v", max, p, err)
			}
			got, err := r.GetBrightness(ctx, "desktop_0")
			if err != nil {
				t.Fatalf("max %d GetBrightness: %v", max, err)
			}
			// Both conversions truncate, so the result never exceeds p and
			// loses at most one percent.
			if got > p || got < p-1 {
				t.Errorf("max %d: set %d, got %d", max, p, got)
			}
		}
	}
}

func TestRegistry_MissingBackend(t *testing.T) {
	ctx := context.Background()
	raw := &fakeRaw{present: map[string]Record{"3": {ID: "raw_3", I2CBus: "3"}}}
	r := NewRegistry(Backends{Raw: raw})
	r.Detect(ctx)

	if _, err := r.GetVCP(ctx, "raw_3", vcp.Other(0x12)); !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("GetVCP error = %v, want ErrBackendUnavailable", err)
	}
}

func TestRegistry_Profiles(t *testing.T) {
	ctx := context.Background()
	bus := &fakeBus{
		records: []Record{{ID: "7", Label: "U2720Q", Model: "DEL:U2720Q:1", I2CBus: "7", MaxBrightness: 100, Capabilities: dellCaps()}},
		caps:    map[string]Capabilities{"7": dellCaps()},
		values: map[string]map[vcp.Code]int{"7": {
			vcp.CodeBrightness:  60,
			vcp.CodeContrast:    70,
			vcp.CodeInputSource: 0x0F,
		}},
	}
	r := NewRegistry(Backends{Bus: bus})
	r.Detect(ctx)

	p, err := r.ExportProfile(ctx, "7", "evening")
	if err != nil {
		t.Fatalf("ExportProfile: %v", err)
	}
	if p.Label != "U2720Q" || p.Name != "evening" {
		t.Errorf("profile header = %q/%q", p.Label, p.Name)
	}
	if len(p.Settings) != 3 || p.Settings[vcp.CodeContrast].Value != 70 {
		t.Errorf("settings = %+v", p.Settings)
	}

	bus.values["7"][vcp.CodeContrast] = 10
	if err := r.ApplyProfile(ctx, "7", p); err != nil {
		t.Fatalf("ApplyProfile: %v", err)
	}
	if bus.values["7"][vcp.CodeContrast] != 70 {
		t.Errorf("contrast = %d after apply, want 70", bus.values["7"][vcp.CodeContrast])
	}
}

func hasFeature(c Capabilities, code vcp.Code) bool {
	_, ok := c.Features[code]
	return ok
}
