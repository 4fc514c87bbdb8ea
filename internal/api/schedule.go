package api

import (
	"encoding/json"
	"net/http"

	"github.com/DonutsDelivery/auto-brightness/internal/solar"
)

// ScheduleUpdate is the body of PUT /schedule. Omitted fields keep their
// current value.
type ScheduleUpdate struct {
	Enabled *bool    `json:"enabled"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Mode    *string  `json:"mode"`
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, _ *http.Request) {
	if s.schedule == nil {
		writeUnavailable(w, "scheduler is not running")
		return
	}
	writeJSON(w, http.StatusOK, s.schedule.Status())
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedule == nil {
		writeUnavailable(w, "scheduler is not running")
		return
	}

	var req ScheduleUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	settings := s.schedule.Settings()
	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.Min != nil {
		settings.Min = *req.Min
	}
	if req.Max != nil {
		settings.Max = *req.Max
	}
	if req.Mode != nil {
		settings.Mode = solar.Mode(*req.Mode)
	}

	if err := s.schedule.Configure(settings); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.schedule.Status())
}

// handleRunSchedule runs one tick now and returns its result.
func (s *Server) handleRunSchedule(w http.ResponseWriter, r *http.Request) {
	if s.schedule == nil {
		writeUnavailable(w, "scheduler is not running")
		return
	}
	writeJSON(w, http.StatusOK, s.schedule.Tick(r.Context()))
}
