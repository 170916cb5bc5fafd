package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cloudpad/cloudpad"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type.
// Internal errors carry the wrapped error text in the message.
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cloudpad.ErrNotFound):
		slog.Warn("request error", "error", err)
		WriteError(w, http.StatusNotFound, CodeNotFound, "Object not found")
	case errors.Is(err, cloudpad.ErrInvalidInput):
		slog.Warn("request error", "error", err)
		WriteError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
	case errors.Is(err, cloudpad.ErrUnauthorized):
		slog.Warn("request error", "error", err)
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Missing or invalid access token")
	case errors.Is(err, cloudpad.ErrTooLarge):
		slog.Warn("request error", "error", err)
		WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

func writeNotFoundRoute(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, CodeNotFound, "No route for "+r.Method+" "+r.URL.Path)
}
