package handler

// RESPONSE HELPERS:
// Every error response from the API has the same shape:
//
//	{"error": "validation_error", "kind": "bad-level-format", "message": "bad level \"15-15\", ..."}
//
// "error" is the broad category (it decides the status code), "kind" is the
// stable machine-readable reason the dashboard switches on, and "ref" is
// present on storage failures so a user report can be matched to a log line.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/alert-dashboard/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written; once Encode
// writes, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
//	ErrUnauthenticated → 401
//	ErrValidation      → 400
//	ErrNotFound        → 404
//	ErrStorage         → 503 (the caller may retry; every write is idempotent)
//	anything else      → 500
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthenticated"
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrStorage):
			status = http.StatusServiceUnavailable
			errorType = "storage_unavailable"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Kind:    string(appErr.Kind),
			Message: appErr.Message,
			Field:   appErr.Field,
			Ref:     appErr.Ref,
		})
		return
	}

	// NEVER expose internal error details to the client: the raw message
	// might contain SQL or file paths.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// maxBodyBytes caps request bodies; the largest legitimate body is a DCA
// ladder or a priority list, both a few hundred bytes.
const maxBodyBytes = 64 << 10

// decodeJSON reads the request body into dst, reporting malformed JSON as a
// validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("body", apperror.KindBadRequest, "request body must be valid JSON")
	}
	return nil
}
