package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/monitors", func(r chi.Router) {
			r.Get("/", s.handleListMonitors)
			r.Post("/detect", s.handleDetectMonitors)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetMonitor)
				r.Get("/brightness", s.handleGetBrightness)
				r.Put("/brightness", s.handleSetBrightness)
				r.Get("/capabilities", s.handleGetCapabilities)
				r.Get("/vcp/{code}", s.handleGetVCP)
				r.Put("/vcp/{code}", s.handleSetVCP)

				r.Route("/profiles", func(r chi.Router) {
					r.Get("/", s.handleListProfiles)
					r.Post("/", s.handleSaveProfile)
					r.Post("/{name}/apply", s.handleApplyProfile)
					r.Delete("/{name}", s.handleDeleteProfile)
				})
			})
		})

		r.Get("/vcp/features", s.handleListFeatures)

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", s.handleGetSchedule)
			r.Put("/", s.handleUpdateSchedule)
			r.Post("/run", s.handleRunSchedule)
		})

		r.Route("/calibration", func(r chi.Router) {
			r.Get("/", s.handleListCalibrations)
			r.Get("/{label}", s.handleGetCalibration)
			r.Put("/{label}", s.handleSaveCalibration)
			r.Delete("/{label}", s.handleDeleteCalibration)
		})

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"monitors": s.monitors.Snapshot().Len(),
	})
}
