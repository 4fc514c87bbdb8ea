package ddcutil

import (
	"testing"
)

const detectOutput = `Display 1
   I2C bus:  /dev/i2c-7
   DRM connector:           card0-DP-1
   Monitor:                 DEL:DELL U2720Q:ABC123

Invalid display
   I2C bus:  /dev/i2c-5
   DRM connector:           card0-eDP-1
   EDID synopsis:
      Mfg id:               BOE

Display 2
   I2C bus:  /dev/i2c-8
   DRM connector:           card0-HDMI-A-1
   Monitor:                 GSM:LG ULTRAFINE:

Display 3
   DRM connector:           card0-DP-2
   Monitor:                 SAM:C27F390:HX5M
`

func TestParseDetect(t *testing.T) {
	got := parseDetect(detectOutput)

	if len(got) != 2 {
		t.Fatalf("parseDetect returned %d displays, want 2: %+v", len(got), got)
	}

	if got[0].display != "1" || got[0].bus != "7" || got[0].model != "DEL:DELL U2720Q:ABC123" {
		t.Errorf("display 1 = %+v", got[0])
	}
	if got[0].label() != "DELL U2720Q" {
		t.Errorf("label = %q, want DELL U2720Q", got[0].label())
	}
	if got[1].bus != "8" || got[1].label() != "LG ULTRAFINE" {
		t.Errorf("display 2 = %+v label %q", got[1], got[1].label())
	}
}

func TestParseDetect_Empty(t *testing.T) {
	if got := parseDetect("No displays found.\n"); len(got) != 0 {
		t.Errorf("parseDetect = %+v, want none", got)
	}
}

func TestDetectedLabel_Fallbacks(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"DEL:U2720Q:ABC123", "U2720Q"},
		{"Generic Monitor", "Generic Monitor"},
		{"", "Unknown"},
		{"DEL::", "DEL::"},
	}
	for _, tt := range tests {
		if got := (detected{model: tt.model}).label(); got != tt.want {
			t.Errorf("label(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

const capabilitiesOutput = `Model: U2720Q
MCCS version: 2.1
Commands:
   Op Code: 01 (VCP Request)
   Op Code: 03 (VCP Set)
VCP Features:
   Feature: 02 (New control value)
   Feature: 10 (Brightness)
   Feature: 12 (Contrast)
   Feature: 14 (Select color preset)
      Values:
         05: 6500 K
         08: 9300 K
         0b: User 1
   Feature: ZZ (Broken
         01: should not attach anywhere
   Feature: 60 (Input Source)
      Values:
         0f: DisplayPort-1
         11: HDMI-1
   Feature: D6 (Power mode)
      Values:
         01: DPM: On,  DPMS: Off
         04: DPM: Off, DPMS: Off
`

func TestParseCapabilities(t *testing.T) {
	caps := parseCapabilities(capabilitiesOutput)

	if caps.Model != "U2720Q" {
		t.Errorf("Model = %q", caps.Model)
	}
	if caps.MCCSVersion != "2.1" {
		t.Errorf("MCCSVersion = %q", caps.MCCSVersion)
	}
	if len(caps.Features) != 6 {
		t.Errorf("got %d features, want 6: %+v", len(caps.Features), caps.Features)
	}
	if caps.Features[0x01].Name != "" {
		t.Error("op code line parsed as a feature")
	}

	preset := caps.Features[0x14]
	if preset.Name != "Select color preset" {
		t.Errorf("0x14 name = %q", preset.Name)
	}
	if preset.Values[0x0B] != "User 1" || len(preset.Values) != 3 {
		t.Errorf("0x14 values = %v", preset.Values)
	}
	if _, leaked := preset.Values[0x01]; leaked {
		t.Error("value from malformed feature attached to previous feature")
	}

	input := caps.Features[0x60]
	if input.Values[0x0F] != "DisplayPort-1" || input.Values[0x11] != "HDMI-1" {
		t.Errorf("0x60 values = %v", input.Values)
	}

	if caps.Features[0xD6].Values[0x04] != "DPM: Off, DPMS: Off" {
		t.Errorf("0xD6 values = %v", caps.Features[0xD6].Values)
	}
	if len(caps.Features[0x10].Values) != 0 {
		t.Errorf("brightness should have no values: %v", caps.Features[0x10].Values)
	}
}

func TestParseCapabilities_Garbage(t *testing.T) {
	caps := parseCapabilities("garbage\n\x00\x01\nFeature: (nothing)\n")
	if len(caps.Features) != 0 {
		t.Errorf("features = %v, want none", caps.Features)
	}
	if caps.Model != "Unknown" {
		t.Errorf("Model = %q, want Unknown", caps.Model)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		current int
		max     int
		ok      bool
	}{
		{
			name:    "continuous",
			out:     "VCP code 0x10 (Brightness                    ): current value =    50, max value =   100\n",
			current: 50, max: 100, ok: true,
		},
		{
			name:    "non-continuous",
			out:     "VCP code 0x60 (Input Source                  ): DisplayPort-1 (sl=0x0f)\n",
			current: 0x0F, ok: true,
		},
		{
			name: "unsupported",
			out:  "VCP code 0x12 (Contrast                      ): Unsupported feature code (Null response)\n",
			ok:   false,
		},
		{name: "empty", out: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, max, ok := parseValue(tt.out)
			if ok != tt.ok || current != tt.current || max != tt.max {
				t.Errorf("parseValue = (%d, %d, %v), want (%d, %d, %v)", current, max, ok, tt.current, tt.max, tt.ok)
			}
		})
	}
}
