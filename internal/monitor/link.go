package monitor

import "strings"

// minTokenLen drops short model tokens such as three-letter PNP vendor ids,
// which would match far too many labels.
const minTokenLen = 4

// Link attaches DDC/CI buses to desktop-service records describing the same
// physical screen.
//
// The join is a best-effort heuristic: the bus record's model string is split
// on ':' and a desktop record links to the first bus record, in bus-list
// order, having a token of at least four characters contained in the desktop
// label (case-insensitive). The desktop record keeps its backend and gains
// the bus and capabilities. Each bus record links at most once, so no two
// records end up sharing a bus.
//
// Inputs are not modified. The result is deterministic for fixed inputs.
func Link(desktop, bus []Record) []Record {
	out := make([]Record, len(desktop))
	used := make([]bool, len(bus))

	for i, d := range desktop {
		linked := d.Clone()
		label := strings.ToLower(d.Label)

		for j, b := range bus {
			if used[j] || !b.HasDDC() {
				continue
			}
			if !sharesToken(modelOf(b), label) {
				continue
			}
			linked.I2CBus = b.I2CBus
			linked.Capabilities = b.Capabilities.Clone()
			if linked.Model == "" {
				linked.Model = b.Model
			}
			used[j] = true
			break
		}
		out[i] = linked
	}
	return out
}

func modelOf(r Record) string {
	if r.Model != "" {
		return r.Model
	}
	return r.Label
}

// sharesToken reports whether any ':'-separated token of model with at least
// minTokenLen characters occurs in the lower-cased label.
func sharesToken(model, lowerLabel string) bool {
	if lowerLabel == "" {
		return false
	}
	for _, tok := range strings.Split(model, ":") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if len(tok) < minTokenLen {
			continue
		}
		if strings.Contains(lowerLabel, tok) {
			return true
		}
	}
	return false
}
