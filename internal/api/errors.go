package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DonutsDelivery/auto-brightness/internal/calibration"
	"github.com/DonutsDelivery/auto-brightness/internal/monitor"
	"github.com/DonutsDelivery/auto-brightness/internal/scheduler"
	"github.com/DonutsDelivery/auto-brightness/internal/vcp"
)

// Error is the body of an error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse wraps Error as {"error": {...}}.
type errorResponse struct {
	Error Error `json:"error"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeNoDDC          = "no_ddc"
	ErrCodeValidation     = "validation_error"
	ErrCodeBackend        = "backend_error"
	ErrCodeUnavailable    = "service_unavailable"
	ErrCodeInternal       = "internal_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: Error{Code: code, Message: message}})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnavailable writes a 503 for an optional component that is not configured.
func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps a domain error onto an HTTP status and code.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, monitor.ErrMonitorNotFound),
		errors.Is(err, calibration.ErrCalibrationNotFound),
		errors.Is(err, calibration.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, monitor.ErrNoDDC):
		writeError(w, http.StatusConflict, ErrCodeNoDDC, err.Error())
	case errors.Is(err, monitor.ErrInvalidValue),
		errors.Is(err, vcp.ErrInvalidCode),
		errors.Is(err, calibration.ErrInvalidCalibration),
		errors.Is(err, scheduler.ErrInvalidSettings):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, monitor.ErrNoReply),
		errors.Is(err, monitor.ErrBackendUnavailable):
		writeError(w, http.StatusBadGateway, ErrCodeBackend, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
