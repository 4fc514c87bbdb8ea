// Package api implements the HTTP REST API and WebSocket server of the
// auto-brightness daemon.
//
// This package provides:
//   - REST endpoints for monitors, brightness, VCP features and profiles
//   - schedule and calibration management
//   - a WebSocket hub broadcasting monitor.brightness, schedule.tick and
//     monitor.detected events
//   - middleware (request ID, logging, recovery, CORS, body size limit)
//
// # Errors
//
// Every error response has the shape
//
//	{"error": {"code": "no_ddc", "message": "..."}}
//
// Unknown monitors map to 404, features a display cannot serve to 409
// no_ddc, invalid values to 400 and display or service failures to 502.
//
// # Graceful Degradation
//
// The server runs without storage, MQTT or InfluxDB. Profile and
// calibration endpoints answer 503 when no repository is configured.
package api
