package vcp

import "sort"

// Widget is the kind of control suited to editing a feature.
type Widget string

const (
	WidgetSlider   Widget = "slider"
	WidgetSelect   Widget = "select"
	WidgetStepper  Widget = "stepper"
	WidgetReadOnly Widget = "readonly"
	WidgetText     Widget = "text"
)

// Descriptor is the semantic metadata for one feature code.
type Descriptor struct {
	Code   Code              `json:"code"`
	Name   string            `json:"name"`
	Widget Widget            `json:"widget"`
	Min    int               `json:"min"`
	Max    int               `json:"max"`
	Suffix string            `json:"suffix,omitempty"`
	Values map[uint16]string `json:"values,omitempty"`
	Known  bool              `json:"known"`
}

func slider(name, suffix string) Descriptor {
	return Descriptor{Name: name, Widget: WidgetSlider, Max: 100, Suffix: suffix}
}

func stepper(name string, lo, hi int, suffix string) Descriptor {
	return Descriptor{Name: name, Widget: WidgetStepper, Min: lo, Max: hi, Suffix: suffix}
}

func readonly(name string, hi int, suffix string) Descriptor {
	return Descriptor{Name: name, Widget: WidgetReadOnly, Max: hi, Suffix: suffix}
}

func choice(name string, values map[uint16]string) Descriptor {
	return Descriptor{Name: name, Widget: WidgetSelect, Max: 255, Values: values}
}

var table = map[Code]Descriptor{
	// Display control
	0x10: slider("Brightness", "%"),
	0x12: slider("Contrast", "%"),
	0x13: slider("Backlight Control", "%"),
	0x87: slider("Sharpness", "%"),

	// Colour
	0x0B: stepper("Color Temperature Increment", 0, 20, ""),
	0x0C: choice("Color Temperature Request", map[uint16]string{
		1: "3000K", 2: "4000K", 3: "5000K", 4: "6500K", 5: "7500K", 6: "9300K", 7: "10000K",
	}),
	0x14: choice("Color Preset", map[uint16]string{
		1: "sRGB", 2: "Adobe RGB", 3: "Wide Gamut", 4: "Native", 5: "User 1",
		6: "User 2", 7: "User 3", 8: "6500K", 9: "7500K", 10: "9300K", 11: "Custom",
	}),
	0x16: slider("Red Gain", "%"),
	0x18: slider("Green Gain", "%"),
	0x1A: slider("Blue Gain", "%"),
	0x56: slider("Hue", "°"),
	0x58: slider("Saturation", "%"),
	0x59: stepper("Color Curve Adjust", 0, 10, ""),
	0x6C: stepper("Red Black Level", 0, 100, ""),
	0x6E: stepper("Green Black Level", 0, 100, ""),
	0x70: stepper("Blue Black Level", 0, 100, ""),
	0x8A: slider("Color Saturation", "%"),

	// Setup
	0x04: choice("Factory Reset", map[uint16]string{
		1: "Reset to Factory Defaults", 2: "Reset Color", 3: "Reset Geometry",
	}),
	0x08: choice("Factory Color Defaults", map[uint16]string{1: "Reset Color to Factory"}),
	0x1E: choice("Auto Setup Enable", map[uint16]string{1: "Auto Setup Disabled", 2: "Auto Setup Enabled"}),
	0x1F: choice("Auto Setup", map[uint16]string{1: "Auto Setup Off", 2: "Auto Setup On"}),

	// Input
	0x60: choice("Input Source", map[uint16]string{
		0x01: "VGA 1", 0x02: "VGA 2", 0x03: "DVI 1", 0x04: "DVI 2",
		0x0F: "DisplayPort 1", 0x10: "DisplayPort 2", 0x11: "HDMI 1",
		0x12: "HDMI 2", 0x13: "HDMI 3", 0x14: "HDMI 4", 0x1B: "USB-C",
	}),

	// Geometry
	0x20: stepper("Horizontal Position", 0, 100, ""),
	0x30: stepper("Vertical Position", 0, 100, ""),
	0x22: stepper("Horizontal Size", 0, 100, ""),
	0x32: stepper("Vertical Size", 0, 100, ""),
	0x86: choice("Display Scaling", map[uint16]string{
		1: "No Scaling", 2: "Max Image, No AR", 3: "Max Image, AR", 4: "Max Vertical Image", 5: "Max Horizontal Image",
	}),
	0x88: stepper("Horizontal Overscan", 0, 100, "%"),
	0x89: stepper("Vertical Overscan", 0, 100, "%"),
	0xAC: readonly("Horizontal Frequency", 65535, " Hz"),
	0xAE: readonly("Vertical Frequency", 65535, " Hz"),

	// Audio
	0x62: slider("Audio Speaker Volume", "%"),
	0x8D: choice("Audio Mute", map[uint16]string{1: "Muted", 2: "Unmuted"}),
	0x8F: slider("Audio Treble", "%"),
	0x91: slider("Audio Bass", "%"),
	0x93: slider("Audio Balance L/R", "%"),

	// OSD and power
	0xCA: choice("OSD", map[uint16]string{1: "OSD Disabled", 2: "OSD Enabled"}),
	0xCC: choice("OSD Language", map[uint16]string{
		1: "Chinese (Traditional)", 2: "English", 3: "French", 4: "German", 5: "Italian",
		6: "Japanese", 7: "Korean", 8: "Portuguese", 9: "Russian", 10: "Spanish",
	}),
	0xD6: choice("Power Mode", map[uint16]string{1: "DPM On", 2: "DPM Standby", 3: "DPM Suspend", 4: "DPM Off", 5: "Power Off"}),
	0xDC: choice("Display Mode", map[uint16]string{
		0: "Standard", 1: "Productivity", 2: "Mixed", 3: "Movie", 4: "User Defined", 5: "Games", 6: "Sports",
	}),
	0xE2: choice("Power LED", map[uint16]string{1: "Off", 2: "On"}),

	// Information
	0x02: readonly("New Control Value", 255, ""),
	0xC0: readonly("Display Usage Time", 65535, " hours"),
	0xC6: readonly("Application Enable Key", 65535, ""),
	0xC8: readonly("Display Controller Type", 65535, ""),
	0xC9: readonly("Display Firmware Level", 65535, ""),
	0xDF: readonly("VCP Version", 65535, ""),
}

func init() {
	for code, d := range table {
		d.Code = code
		d.Known = true
		table[code] = d
	}
}

// Lookup returns the descriptor for code. Unknown codes get a free-text
// fallback named "VCP XX" with range 0..255.
func Lookup(code Code) Descriptor {
	if d, ok := table[code]; ok {
		return d.clone()
	}
	return Descriptor{
		Code:   code,
		Name:   "VCP " + code.String(),
		Widget: WidgetText,
		Max:    255,
	}
}

// Describe merges a monitor-reported name and value labels into the static
// descriptor. Static data wins; reported data fills what the table lacks.
func Describe(code Code, name string, values map[uint8]string) Descriptor {
	d := Lookup(code)
	if !d.Known && name != "" {
		d.Name = name
	}
	if len(d.Values) == 0 && len(values) > 0 {
		d.Values = make(map[uint16]string, len(values))
		for k, v := range values {
			d.Values[uint16(k)] = v
		}
		if d.Widget == WidgetText {
			d.Widget = WidgetSelect
		}
	}
	return d
}

// All returns every known descriptor ordered by code.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(table))
	for _, d := range table {
		out = append(out, d.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (d Descriptor) clone() Descriptor {
	if d.Values != nil {
		values := make(map[uint16]string, len(d.Values))
		for k, v := range d.Values {
			values[k] = v
		}
		d.Values = values
	}
	return d
}
