package monitor

import (
	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// Backend identifies the driver that owns brightness for a monitor.
type Backend string

const (
	// BackendDesktop is the desktop session brightness service.
	BackendDesktop Backend = "desktop_service"

	// BackendBusDDC is DDC/CI through the bus-level command line tool.
	BackendBusDDC Backend = "bus_ddc"

	// BackendRawDDC is DDC/CI spoken directly over an I2C character device.
	BackendRawDDC Backend = "raw_ddc"
)

// String returns the string representation of the backend.
func (b Backend) String() string {
	return string(b)
}

// FeatureCapability is one VCP feature a display reports as supported.
type FeatureCapability struct {
	Name   string           `json:"name"`
	Values map[uint8]string `json:"values,omitempty"`
}

// Capabilities is the parsed capability description of one display.
type Capabilities struct {
	Model       string                         `json:"model,omitempty"`
	MCCSVersion string                         `json:"mccs_version,omitempty"`
	Features    map[vcp.Code]FeatureCapability `json:"features"`
}

// BrightnessOnly returns the stub used by backends that cannot discover features.
func BrightnessOnly() Capabilities {
	return Capabilities{
		Features: map[vcp.Code]FeatureCapability{
			vcp.CodeBrightness: {Name: "Brightness"},
		},
	}
}

// Clone returns a deep copy so no two records share feature maps.
func (c Capabilities) Clone() Capabilities {
	out := Capabilities{
		Model:       c.Model,
		MCCSVersion: c.MCCSVersion,
		Features:    make(map[vcp.Code]FeatureCapability, len(c.Features)),
	}
	for code, f := range c.Features {
		fc := FeatureCapability{Name: f.Name}
		if f.Values != nil {
			fc.Values = make(map[uint8]string, len(f.Values))
			for k, v := range f.Values {
				fc.Values[k] = v
			}
		}
		out.Features[code] = fc
	}
	return out
}

// Record describes one logical monitor found in a detection pass.
//
// ID is unique within a pass only. Label is the best-effort stable key and
// is what calibration data is stored against.
type Record struct {
	ID            string       `json:"id"`
	Label         string       `json:"label"`
	Model         string       `json:"model,omitempty"`
	Backend       Backend      `json:"backend"`
	I2CBus        string       `json:"i2c_bus,omitempty"`
	MaxBrightness int          `json:"max_brightness"`
	Handle        string       `json:"-"`
	Capabilities  Capabilities `json:"capabilities"`
}

// HasDDC reports whether a DDC/CI bus is known for the monitor.
func (r Record) HasDDC() bool {
	return r.I2CBus != ""
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	r.Capabilities = r.Capabilities.Clone()
	return r
}

// ToPercent converts a native brightness to 0..100, rounding toward zero.
// A non-positive max yields 0.
func ToPercent(native, max int) int {
	if max <= 0 {
		return 0
	}
	return clampPercent(native * 100 / max)
}

// ToNative converts a 0..100 percentage to native units, rounding toward zero.
func ToNative(percent, max int) int {
	if max <= 0 {
		return 0
	}
	return clampPercent(percent) * max / 100
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
