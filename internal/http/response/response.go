// Package response provides the JSON envelope shared by every HTTP response
// and failure helpers for handlers that write to http.ResponseWriter directly.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	domainerrors "github.com/kaziapp/taggraph/internal/errors"
)

// Version is the envelope format version. Clients reject envelopes with a
// version they do not know.
const Version = 1

// Envelope provides a consistent JSON response structure. On failure Kind
// carries the error code (NOT_FOUND, CONFLICT, VALIDATION, PERSISTENCE).
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Details any    `json:"details,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data any) Envelope {
	return Envelope{Version: Version, Success: true, Data: data}
}

// Fail builds a failure envelope.
func Fail(kind, message string, details any) Envelope {
	return Envelope{Version: Version, Error: message, Kind: kind, Details: details}
}

// Error writes a failure envelope with the given status code and kind.
func Error(w http.ResponseWriter, status int, kind, message string, logger *slog.Logger) {
	write(w, status, Fail(kind, message, nil), logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, string(domainerrors.CodeNotFound), message, logger)
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", logger)
}

// TooManyRequests writes a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, "RATE_LIMITED", message, logger)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, string(domainerrors.CodeInternal), message, logger)
}

func write(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(env); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}
