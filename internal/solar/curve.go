package solar

import (
	"fmt"
	"math"
	"time"
)

// Mode selects the shape of the brightness curve.
type Mode string

const (
	// ModeCurve follows twilight and morning ramps in five segments.
	ModeCurve Mode = "curve"

	// ModeSimple ramps linearly through civil twilight only.
	ModeSimple Mode = "simple"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCurve, ModeSimple:
		return Mode(s), nil
	case "":
		return ModeCurve, nil
	default:
		return "", fmt.Errorf("unknown brightness mode %q", s)
	}
}

// segment is one linear piece: between From and To degrees of elevation the
// fraction goes from Lo to Hi.
type segment struct {
	from, to float64
	lo, hi   float64
}

var curveSegments = []segment{
	{-6, 0, 0, 0.30},
	{0, 15, 0.30, 0.70},
	{15, 40, 0.70, 1},
}

var simpleSegments = []segment{
	{-6, 6, 0, 1},
}

// Curve maps solar elevation to a brightness fraction. Min and Max are
// fractions in 0..1.
type Curve struct {
	Min  float64
	Max  float64
	Mode Mode
}

// At returns the brightness fraction for elevation degrees. Below the first
// segment (and for NaN) it is exactly Min, above the last exactly Max, and
// never outside [Min, Max].
func (c Curve) At(elevation float64) float64 {
	segs := curveSegments
	if c.Mode == ModeSimple {
		segs = simpleSegments
	}

	switch {
	case math.IsNaN(elevation) || elevation <= segs[0].from:
		return c.Min
	case elevation > segs[len(segs)-1].to:
		return c.Max
	}

	frac := 1.0
	for _, s := range segs {
		if elevation <= s.to {
			frac = s.lo + (s.hi-s.lo)*(elevation-s.from)/(s.to-s.from)
			break
		}
	}
	// Min + (Max-Min) can round past Max.
	return math.Min(math.Max(c.Min+frac*(c.Max-c.Min), c.Min), c.Max)
}

// Percent is At scaled to 0..100 and rounded to the nearest point.
func (c Curve) Percent(elevation float64) int {
	p := int(math.Round(c.At(elevation) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Compute returns the brightness fraction for an observer at lat, lon at t.
func Compute(lat, lon float64, t time.Time, min, max float64, mode Mode) float64 {
	c := Curve{Min: min, Max: max, Mode: mode}
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return c.Min
	}
	return c.At(Elevation(lat, lon, t))
}
