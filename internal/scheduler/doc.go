// Package scheduler drives monitor brightness from the sun's position.
//
// Every interval the scheduler computes the curve's target for the current
// solar elevation, adjusts it per monitor with the stored calibration and
// writes it to each monitor whose value changed since the last write. The
// monitor set is re-detected every few ticks, or on demand, so hot-plugged
// displays are picked up.
//
// After each tick the result is fanned out to whichever sinks are
// configured: MQTT state, InfluxDB points and WebSocket events.
//
// A value the scheduler wrote is not re-sent until the target moves, so a
// manual adjustment survives until the curve next changes.
package scheduler
