package vcp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCode is returned when a feature code string cannot be parsed.
var ErrInvalidCode = errors.New("invalid VCP feature code")

// Code is a one-byte VCP feature code.
type Code uint8

// Feature codes the daemon refers to by name.
const (
	CodeBrightness  Code = 0x10
	CodeContrast    Code = 0x12
	CodeColorPreset Code = 0x14
	CodeInputSource Code = 0x60
	CodeAudioVolume Code = 0x62
	CodePowerMode   Code = 0xD6
)

// String renders the code as two upper-case hex digits, the form ddcutil accepts.
func (c Code) String() string {
	return fmt.Sprintf("%02X", uint8(c))
}

// MarshalText implements encoding.TextMarshaler so codes work as JSON map keys.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Code) UnmarshalText(text []byte) error {
	parsed, err := ParseCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCode parses a hexadecimal feature code such as "10", "0x10" or "d6".
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" || len(s) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, s)
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, s)
	}
	return Code(v), nil
}

// Feature distinguishes the brightness control, which every backend can
// serve, from every other VCP feature, which only DDC/CI can serve.
type Feature struct {
	code Code
}

// Brightness is the luminance feature (0x10).
var Brightness = Feature{code: CodeBrightness}

// Other returns the feature for a raw code. Other(0x10) equals Brightness.
func Other(code Code) Feature {
	return Feature{code: code}
}

// FeatureOf maps a code read from outside input to its feature; 0x10 is
// Brightness.
func FeatureOf(code Code) Feature {
	if code == CodeBrightness {
		return Brightness
	}
	return Other(code)
}

// IsBrightness reports whether f is the brightness feature.
func (f Feature) IsBrightness() bool {
	return f.code == CodeBrightness
}

// Code returns the underlying VCP code.
func (f Feature) Code() Code {
	return f.code
}

func (f Feature) String() string {
	if f.IsBrightness() {
		return "brightness"
	}
	return "vcp:" + f.code.String()
}
