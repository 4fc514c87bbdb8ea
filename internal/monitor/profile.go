package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// Setting is one captured feature value.
type Setting struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Profile is a snapshot of a display's writable VCP settings, keyed by the
// monitor label so it can be re-applied after ids change.
type Profile struct {
	Name     string               `json:"name"`
	Label    string               `json:"label"`
	Settings map[vcp.Code]Setting `json:"settings"`
}

// exportable reports whether a feature should be captured in a profile.
// Read-only information codes and one-shot actions are skipped.
func exportable(code vcp.Code) bool {
	switch code {
	case vcp.CodePowerMode, 0x04, 0x08, 0x1E, 0x1F:
		return false
	}
	d := vcp.Lookup(code)
	return d.Widget != vcp.WidgetReadOnly
}

// ExportProfile reads the current value of every supported, writable
// feature. Features that fail to read are left out.
func (r *Registry) ExportProfile(ctx context.Context, id, name string) (Profile, error) {
	caps, err := r.Capabilities(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	rec, err := r.Get(id)
	if err != nil {
		return Profile{}, err
	}

	p := Profile{Name: name, Label: rec.Label, Settings: make(map[vcp.Code]Setting)}
	for _, code := range sortedCodes(caps.Features) {
		if !exportable(code) {
			continue
		}
		v, err := r.GetVCP(ctx, id, vcp.Other(code))
		if err != nil {
			r.logger.Debug("skipping unreadable feature", "monitor", id, "feature", code.String(), "error", err)
			continue
		}
		featureName := caps.Features[code].Name
		if featureName == "" {
			featureName = vcp.Lookup(code).Name
		}
		p.Settings[code] = Setting{Name: featureName, Value: v}
	}
	return p, nil
}

// ApplyProfile writes every setting of p to the monitor. All settings are
// attempted; the returned error joins the individual failures.
func (r *Registry) ApplyProfile(ctx context.Context, id string, p Profile) error {
	if _, err := r.Get(id); err != nil {
		return err
	}

	codes := make([]vcp.Code, 0, len(p.Settings))
	for code := range p.Settings {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	var errs []error
	for _, code := range codes {
		if err := r.SetVCP(ctx, id, vcp.Other(code), p.Settings[code].Value); err != nil {
			errs = append(errs, fmt.Errorf("feature %s: %w", code, err))
		}
	}
	return errors.Join(errs...)
}

func sortedCodes(features map[vcp.Code]FeatureCapability) []vcp.Code {
	codes := make([]vcp.Code, 0, len(features))
	for code := range features {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
