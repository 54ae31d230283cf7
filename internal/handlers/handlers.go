package handlers

import (
	"context"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"market-finder/internal/finder"
	"market-finder/internal/logging"
	"market-finder/internal/store"
)

// HealthChecker is implemented by sources backed by a database
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler provides common handler utilities and dependencies
type Handler struct {
	Finder *finder.Finder
	Source store.CandidateSource
}

// validate is a reusable validator instance
var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Response is the envelope of every JSON response
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Meta    any          `json:"meta,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// FieldError is one rejected request field
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Value any    `json:"value,omitempty"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeSuccess(w http.ResponseWriter, message string, data, meta any) {
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details any) {
	h.writeJSON(w, status, Response{
		Success: false,
		Message: message,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleBadRequest handles 400 errors for bodies that cannot be decoded
func (h *Handler) handleBadRequest(w http.ResponseWriter, message string) {
	h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", message, nil)
}

// handleValidationError handles 422 errors
func (h *Handler) handleValidationError(w http.ResponseWriter, message string, details any) {
	h.writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, details)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(w http.ResponseWriter, message string, err error) {
	logging.Error().Err(err).Msg("[ERROR] Internal error")
	h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

// fieldErrors flattens validator errors into the response shape
func fieldErrors(err error) []FieldError {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag(), Value: fe.Value()})
	}
	return out
}

// HandleHealth reports whether the candidate source is reachable
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if hc, ok := h.Source.(HealthChecker); ok {
		if err := hc.HealthCheck(r.Context()); err != nil {
			logging.Warn().Err(err).Msg("Health check failed")
			h.writeError(w, http.StatusServiceUnavailable, "UNHEALTHY", "candidate store unavailable", nil)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
