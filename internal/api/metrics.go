package api

import (
	"database/sql"
	"net/http"
	"runtime"
	"time"
)

// DBStatser exposes connection pool statistics.
type DBStatser interface {
	Stats() sql.DBStats
}

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          ConnMetrics      `json:"mqtt"`
	InfluxDB      ConnMetrics      `json:"influxdb"`
	Monitors      MonitorMetrics   `json:"monitors"`
	Schedule      *ScheduleMetrics `json:"schedule,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// ConnMetrics reports whether an optional outbound connection is configured
// and up.
type ConnMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// MonitorMetrics summarises the current detection snapshot.
type MonitorMetrics struct {
	Total      int            `json:"total"`
	ByBackend  map[string]int `json:"by_backend"`
	DetectedAt time.Time      `json:"detected_at"`
}

// ScheduleMetrics summarises the scheduler.
type ScheduleMetrics struct {
	Enabled   bool      `json:"enabled"`
	LastRun   time.Time `json:"last_run,omitempty"`
	Target    int       `json:"target"`
	Elevation float64   `json:"elevation"`
	NextRun   time.Time `json:"next_run"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := s.monitors.Snapshot()
	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Monitors: MonitorMetrics{
			Total:     snap.Len(),
			ByBackend: make(map[string]int),
		},
	}
	if snap != nil {
		metrics.Monitors.DetectedAt = snap.DetectedAt
	}
	for _, rec := range snap.List() {
		metrics.Monitors.ByBackend[rec.Backend.String()]++
	}

	if s.mqtt != nil {
		metrics.MQTT = ConnMetrics{Enabled: true, Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		metrics.InfluxDB = ConnMetrics{Enabled: true, Connected: s.influx.IsConnected()}
	}

	if s.schedule != nil {
		st := s.schedule.Status()
		metrics.Schedule = &ScheduleMetrics{Enabled: st.Enabled, NextRun: st.NextRun}
		if st.LastRun != nil {
			metrics.Schedule.LastRun = st.LastRun.At
			metrics.Schedule.Target = st.LastRun.Target
			metrics.Schedule.Elevation = st.LastRun.Elevation
		}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
