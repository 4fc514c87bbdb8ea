package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// BrightnessRequest is the body of PUT /monitors/{id}/brightness.
type BrightnessRequest struct {
	Brightness *int `json:"brightness"`
}

// VCPRequest is the body of PUT /monitors/{id}/vcp/{code}.
type VCPRequest struct {
	Value *int `json:"value"`
}

// snapshotResponse renders a detection snapshot.
func snapshotResponse(snap *monitor.Snapshot) map[string]any {
	resp := map[string]any{
		"monitors": snap.List(),
		"count":    snap.Len(),
	}
	if snap != nil {
		resp["pass_id"] = snap.PassID
		resp["detected_at"] = snap.DetectedAt
	}
	return resp
}

// handleListMonitors returns the monitors of the current snapshot.
func (s *Server) handleListMonitors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, snapshotResponse(s.monitors.Snapshot()))
}

// handleDetectMonitors runs a detection pass and returns the new snapshot.
// With a scheduler present the pass goes through it, so it also forgets the
// values it wrote under the old ids.
func (s *Server) handleDetectMonitors(w http.ResponseWriter, r *http.Request) {
	var snap *monitor.Snapshot
	if s.schedule != nil {
		snap = s.schedule.Detect(r.Context())
	} else {
		snap = s.monitors.Detect(r.Context())
		s.hub.Broadcast(ChannelMonitorDetected, snapshotResponse(snap))
	}
	writeJSON(w, http.StatusOK, snapshotResponse(snap))
}

// handleGetMonitor returns a single monitor by ID.
func (s *Server) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	rec, err := s.monitors.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleGetBrightness reads the monitor's brightness in percent.
func (s *Server) handleGetBrightness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	v, err := s.monitors.GetBrightness(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "brightness": v})
}

// handleSetBrightness sets the monitor's brightness in percent.
func (s *Server) handleSetBrightness(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req BrightnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Brightness == nil {
		writeBadRequest(w, "brightness is required")
		return
	}

	if err := s.monitors.SetBrightness(r.Context(), id, *req.Brightness); err != nil {
		writeDomainError(w, err)
		return
	}

	s.broadcastBrightness(id, *req.Brightness)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "brightness": *req.Brightness})
}

func (s *Server) broadcastBrightness(id string, percent int) {
	payload := map[string]any{"id": id, "brightness": percent, "source": "api"}
	if rec, err := s.monitors.Get(id); err == nil {
		payload["label"] = rec.Label
	}
	s.hub.Broadcast(ChannelMonitorBrightness, payload)
}

// handleGetCapabilities returns the monitor's supported features, each
// merged with its static descriptor.
func (s *Server) handleGetCapabilities(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	caps, err := s.monitors.Capabilities(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	features := make([]vcp.Descriptor, 0, len(caps.Features))
	for code, f := range caps.Features {
		features = append(features, vcp.Describe(code, f.Name, f.Values))
	}
	sort.Slice(features, func(i, j int) bool { return features[i].Code < features[j].Code })

	writeJSON(w, http.StatusOK, map[string]any{
		"id":           id,
		"model":        caps.Model,
		"mccs_version": caps.MCCSVersion,
		"features":     features,
	})
}

// handleGetVCP reads one VCP feature.
func (s *Server) handleGetVCP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	code, err := vcp.ParseCode(chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	v, err := s.monitors.GetVCP(r.Context(), id, vcp.FeatureOf(code))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"code":       code,
		"value":      v,
		"descriptor": vcp.Lookup(code),
	})
}

// handleSetVCP writes one VCP feature. For brightness (0x10) the value is a
// percentage; otherwise it is the display's native value.
func (s *Server) handleSetVCP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	code, err := vcp.ParseCode(chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req VCPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	feature := vcp.FeatureOf(code)
	if err := s.monitors.SetVCP(r.Context(), id, feature, *req.Value); err != nil {
		writeDomainError(w, err)
		return
	}

	if feature.IsBrightness() {
		s.broadcastBrightness(id, *req.Value)
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "code": code, "value": *req.Value})
}

// handleListFeatures returns the static VCP feature table.
func (s *Server) handleListFeatures(w http.ResponseWriter, _ *http.Request) {
	features := vcp.All()
	writeJSON(w, http.StatusOK, map[string]any{"features": features, "count": len(features)})
}
