package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the API's standard error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// sentinels maps each domain sentinel to its status and wire code.
// Order matters only for errors that wrap more than one sentinel.
var sentinels = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError rejects a request before it reaches the service layer
// (missing body, malformed id or query parameter).
func requestError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// serviceError maps err to a response. Domain sentinels keep their message;
// anything else is logged and hidden behind a generic 500.
func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range sentinels {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, unwrapMessage(err, m.err))
			return
		}
	}
	s.log.ErrorContext(r.Context(), "unhandled error",
		slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}

// unwrapMessage extracts the human-readable part from a wrapped sentinel error.
// e.g. "service.SlotService.Delete: conflict: slot is not open" -> "slot is not open"
// A bare sentinel yields its own text.
func unwrapMessage(err, sentinel error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}

// decodeJSON reads the request body into dst. It reports a request error and
// returns false when the body is missing or malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		requestError(w, "request body must be valid JSON")
		return false
	}
	return true
}
