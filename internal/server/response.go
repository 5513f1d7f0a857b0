package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cyrup-ai/kodegen-tools-config/internal/config"
	"github.com/cyrup-ai/kodegen-tools-config/internal/logging"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeUnavailable    = "UNAVAILABLE"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Debug().Err(err).Msg("write response")
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorWithDetails(w, status, code, message, nil)
}

// writeErrorWithDetails writes an error response with details.
func writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeValidationError maps a config validation error to a 400 response and a
// closed manager to 503.
func writeValidationError(w http.ResponseWriter, err error) {
	if errors.Is(err, config.ErrClosed) {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
		return
	}
	var verr *config.ValidationError
	if !errors.As(err, &verr) {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	reason := "invalid_value"
	switch {
	case errors.Is(err, config.ErrUnknownKey):
		reason = "unknown_key"
	case errors.Is(err, config.ErrTypeMismatch):
		reason = "type_mismatch"
	case errors.Is(err, config.ErrOutOfRange):
		reason = "out_of_range"
	}
	writeErrorWithDetails(w, http.StatusBadRequest, ErrCodeInvalidRequest, verr.Error(), map[string]any{
		"key":    verr.Key,
		"reason": reason,
	})
}

// writeSuccess writes a success response.
func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
