// Package calibration stores per-monitor brightness adjustments and saved
// VCP profiles in SQLite.
//
// Monitor ids are only stable within one detection pass, so everything here
// is keyed by the monitor's label.
package calibration
