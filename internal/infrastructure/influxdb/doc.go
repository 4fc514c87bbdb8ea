// Package influxdb records brightness telemetry in InfluxDB.
//
// It wraps the influxdb-client-go v2 non-blocking write API. Two
// measurements are written after every scheduler tick:
//
//	brightness_curve    fields: elevation, target
//	monitor_brightness  tags: label, backend  fields: id, brightness
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCurve(elevation, target, time.Now())
package influxdb
