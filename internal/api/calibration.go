package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/DonutsDelivery/auto-brightness/internal/calibration"
)

func labelParam(r *http.Request) string {
	raw := chi.URLParam(r, "label")
	if label, err := url.PathUnescape(raw); err == nil {
		return label
	}
	return raw
}

func (s *Server) handleListCalibrations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeUnavailable(w, "calibration storage is not configured")
		return
	}
	cals, err := s.store.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list calibrations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calibrations": cals, "count": len(cals)})
}

func (s *Server) handleGetCalibration(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeUnavailable(w, "calibration storage is not configured")
		return
	}
	c, err := s.store.Get(r.Context(), labelParam(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleSaveCalibration creates or replaces the calibration for a label.
// The label in the path wins over one in the body.
func (s *Server) handleSaveCalibration(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeUnavailable(w, "calibration storage is not configured")
		return
	}

	c := calibration.Default(labelParam(r))
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	c.Label = labelParam(r)

	if err := s.store.Save(r.Context(), &c); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCalibration(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeUnavailable(w, "calibration storage is not configured")
		return
	}
	if err := s.store.Delete(r.Context(), labelParam(r)); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
