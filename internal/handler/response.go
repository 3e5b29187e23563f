package handler

// RESPONSE HELPERS:
// Every response from the API uses one envelope so the client can branch on
// a single field:
//
//	{"success": true,  "data": ...}
//	{"success": false, "error": "not_found", "message": "post not found with id ..."}
//
// Handlers call writeData / writeError and never build the envelope by hand.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/repository"
)

// maxBodyBytes caps JSON request bodies. Posts are the largest payload.
const maxBodyBytes = 64 << 10

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// writeJSON sends v with the given status code.
//
// Headers and status must be set before the body: once Encode writes, the
// headers are gone and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError maps a domain error to an HTTP status and sends it.
//
// errors.Is walks the whole chain, so a service error such as
//
//	fmt.Errorf("service/posts: deleting x: %w", apperror.NotFound(...))
//
// still matches ErrNotFound here. The service layer never sees status codes.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Never expose internal error text: it can carry SQL or file paths.
		slog.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, envelope{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrInvalidReference):
		status, code = http.StatusBadRequest, "invalid_reference"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrAlreadyFollowing):
		status, code = http.StatusConflict, "already_following"
	case errors.Is(err, apperror.ErrNotFollowing):
		status, code = http.StatusConflict, "not_following"
	case errors.Is(err, apperror.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrTransient):
		status, code = http.StatusServiceUnavailable, "unavailable"
		w.Header().Set("Retry-After", "1")
	}

	if status == http.StatusInternalServerError {
		slog.Error("unmapped application error", slog.String("error", err.Error()))
	}

	writeJSON(w, status, envelope{
		Error:   code,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a single JSON object from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("body", fmt.Sprintf("request body must be %d bytes or fewer", maxBodyBytes))
		}
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

// listOptions reads ?limit=&offset=. Bad values fall back to defaults; the
// service clamps the rest.
func listOptions(r *http.Request) repository.ListOptions {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return repository.ListOptions{Limit: limit, Offset: offset}
}
