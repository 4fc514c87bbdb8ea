package ddcutil

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

var (
	displayRe      = regexp.MustCompile(`^Display\s+(\d+)`)
	busRe          = regexp.MustCompile(`/dev/i2c-(\d+)`)
	featureRe      = regexp.MustCompile(`^Feature:\s*([0-9A-Fa-f]{1,2})\s*\((.+)\)\s*$`)
	valueRe        = regexp.MustCompile(`^([0-9A-Fa-f]{1,2}):\s*(.+)$`)
	currentValueRe = regexp.MustCompile(`(?i)current value\s*=\s*(\d+)`)
	maxValueRe     = regexp.MustCompile(`(?i)max value\s*=\s*(\d+)`)
	slValueRe      = regexp.MustCompile(`\(sl=0x([0-9A-Fa-f]+)\)`)
)

// detected is one display block of `ddcutil detect --brief`.
type detected struct {
	display string
	bus     string
	model   string
}

// label returns the model segment of a MFG:MODEL:SERIAL string.
func (d detected) label() string {
	parts := strings.Split(d.model, ":")
	if len(parts) >= 2 && strings.TrimSpace(parts[1]) != "" {
		return strings.TrimSpace(parts[1])
	}
	if m := strings.TrimSpace(d.model); m != "" {
		return m
	}
	return "Unknown"
}

// parseDetect walks `ddcutil detect --brief` output. A "Display N" line opens
// a block; "I2C bus:" and "Monitor:" lines fill it. "Invalid display" blocks
// and blocks without a bus are dropped.
func parseDetect(out string) []detected {
	var (
		result  []detected
		current *detected
	)
	flush := func() {
		if current != nil && current.bus != "" {
			result = append(result, *current)
		}
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "Invalid display"):
			flush()
		case displayRe.MatchString(line):
			flush()
			current = &detected{display: displayRe.FindStringSubmatch(line)[1]}
		case current == nil:
			continue
		case strings.HasPrefix(line, "I2C bus:"):
			if m := busRe.FindStringSubmatch(line); m != nil {
				current.bus = m[1]
			}
		case strings.HasPrefix(line, "Monitor:"):
			current.model = strings.TrimSpace(strings.TrimPrefix(line, "Monitor:"))
		}
	}
	flush()
	return result
}

// parseCapabilities reads `ddcutil capabilities` output. A malformed Feature
// line is skipped and closes the open feature so its values are not
// attributed to the previous one.
func parseCapabilities(out string) monitor.Capabilities {
	caps := monitor.Capabilities{
		Model:       "Unknown",
		MCCSVersion: "Unknown",
		Features:    make(map[vcp.Code]monitor.FeatureCapability),
	}

	var (
		current vcp.Code
		open    bool
	)

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			open = false
		case strings.HasPrefix(line, "Model:"):
			caps.Model = strings.TrimSpace(strings.TrimPrefix(line, "Model:"))
			open = false
		case strings.HasPrefix(line, "MCCS version:"):
			caps.MCCSVersion = strings.TrimSpace(strings.TrimPrefix(line, "MCCS version:"))
			open = false
		case strings.HasPrefix(line, "Feature:"):
			open = false
			m := featureRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			code, err := vcp.ParseCode(m[1])
			if err != nil {
				continue
			}
			current, open = code, true
			caps.Features[code] = monitor.FeatureCapability{Name: strings.TrimSpace(m[2])}
		case strings.HasSuffix(line, ":") && !valueRe.MatchString(line):
			// Section headers ("Commands:", "VCP Features:", "Values:").
			if line != "Values:" {
				open = false
			}
		case open:
			m := valueRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			v, err := strconv.ParseUint(m[1], 16, 8)
			if err != nil {
				continue
			}
			f := caps.Features[current]
			if f.Values == nil {
				f.Values = make(map[uint8]string)
			}
			f.Values[uint8(v)] = strings.TrimSpace(m[2])
			caps.Features[current] = f
		}
	}
	return caps
}

// parseValue extracts the value from `ddcutil getvcp` output. Continuous
// features report "current value = N"; non-continuous ones "(sl=0xNN)".
func parseValue(out string) (current, max int, ok bool) {
	if m := currentValueRe.FindStringSubmatch(out); m != nil {
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, 0, false
		}
		if mm := maxValueRe.FindStringSubmatch(out); mm != nil {
			max, _ = strconv.Atoi(mm[1])
		}
		return v, max, true
	}
	if m := slValueRe.FindStringSubmatch(out); m != nil {
		v, err := strconv.ParseUint(m[1], 16, 16)
		if err != nil {
			return 0, 0, false
		}
		return int(v), 0, true
	}
	return 0, 0, false
}
