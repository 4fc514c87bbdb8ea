// Package config loads the daemon configuration.
//
// Values come from, in increasing precedence: built-in defaults, the YAML
// file passed to Load, and AUTOBRIGHTNESS_* environment variables. Load
// validates the result; the site location has no default and must be set.
//
// Keep the MQTT password and InfluxDB token out of the file and pass them
// as AUTOBRIGHTNESS_MQTT_PASSWORD and AUTOBRIGHTNESS_INFLUXDB_TOKEN.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	lat, lon := cfg.Site.Location.Latitude, cfg.Site.Location.Longitude
package config
