package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a standardized error response format.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// WriteError writes a standardized JSON error response. Internal error
// details never reach the caller; pass only the coarse message and log the
// rest.
func WriteError(w http.ResponseWriter, statusCode int, message string, errs []string, log *slog.Logger) {
	response := ErrorResponse{Message: message, Errors: errs}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		if log != nil {
			log.Error("failed to encode error response", "error", err)
		}
	}
}

// WriteJSON writes a JSON payload with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
