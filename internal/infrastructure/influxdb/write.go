package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCurve             = "brightness_curve"
	MeasurementMonitorBrightness = "monitor_brightness"
)

// WriteCurve records the solar elevation and the curve's target percentage.
func (c *Client) WriteCurve(elevation float64, target int, at time.Time) {
	c.write(write.NewPoint(MeasurementCurve,
		nil,
		map[string]any{
			"elevation": elevation,
			"target":    target,
		},
		at))
}

// WriteMonitorBrightness records a brightness value written to a monitor.
// The label is a tag because it is the stable identity across detection
// passes; the id is kept as a field.
func (c *Client) WriteMonitorBrightness(id, label, backend string, percent int, at time.Time) {
	c.write(write.NewPoint(MeasurementMonitorBrightness,
		map[string]string{
			"label":   label,
			"backend": backend,
		},
		map[string]any{
			"id":         id,
			"brightness": percent,
		},
		at))
}

// WritePoint writes a custom point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.write(write.NewPoint(measurement, tags, fields, time.Now()))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}
