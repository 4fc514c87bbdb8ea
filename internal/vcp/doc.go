// Package vcp holds the static VESA Monitor Control Command Set (MCCS)
// feature table used to describe DDC/CI Virtual Control Panel codes.
//
// The table is read-only and safe for concurrent use. Lookups never fail:
// an unknown code resolves to a generic free-text descriptor so callers can
// still render and edit values the table does not know about.
//
// Dispatch on brightness versus any other feature goes through Feature:
//
//	switch f := vcp.FeatureOf(code); {
//	case f.IsBrightness():
//	    // preferred per-backend brightness path
//	default:
//	    // DDC/CI only
//	}
package vcp
