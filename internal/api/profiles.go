package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SaveProfileRequest is the body of POST /monitors/{id}/profiles.
type SaveProfileRequest struct {
	Name string `json:"name"`
}

// handleListProfiles lists the profiles stored for the monitor's label.
func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeUnavailable(w, "profile storage is not configured")
		return
	}
	rec, err := s.monitors.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	profiles, err := s.store.ListProfiles(r.Context(), rec.Label)
	if err != nil {
		writeInternalError(w, "failed to list profiles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles, "count": len(profiles)})
}

// handleSaveProfile captures the monitor's current settings under a name.
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeUnavailable(w, "profile storage is not configured")
		return
	}
	id := chi.URLParam(r, "id")

	var req SaveProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	profile, err := s.monitors.ExportProfile(r.Context(), id, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.store.SaveProfile(r.Context(), profile); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// handleApplyProfile writes a stored profile back to the monitor.
func (s *Server) handleApplyProfile(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeUnavailable(w, "profile storage is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := s.monitors.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	profile, err := s.store.GetProfile(r.Context(), rec.Label, chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.monitors.ApplyProfile(r.Context(), id, profile); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "applied": profile.Name})
}

// handleDeleteProfile removes a stored profile.
func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeUnavailable(w, "profile storage is not configured")
		return
	}
	rec, err := s.monitors.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.store.DeleteProfile(r.Context(), rec.Label, chi.URLParam(r, "name")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
