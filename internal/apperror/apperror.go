// Package apperror defines the domain error taxonomy shared by every layer.
//
// Lower layers return an *AppError (or wrap one with fmt.Errorf("...: %w")),
// and the HTTP layer maps the wrapped sentinel to a status code. Callers test
// for a category with errors.Is(err, apperror.ErrNotFound) and friends.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("Validation Error")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidReference = errors.New("invalid reference")
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")
	ErrTransient        = errors.New("transient")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned when the caller's identity is missing or does not
// own the resource it is trying to change (post deletion, profile edits).
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// InvalidReference reports an identifier that is not a well-formed id.
// field names the parameter ("userId", "postId") so clients can point at it.
func InvalidReference(field, id string) *AppError {
	return &AppError{
		Err:     ErrInvalidReference,
		Message: fmt.Sprintf("invalid %s %q", field, id),
		Field:   field,
	}
}

func AlreadyFollowing(targetID string) *AppError {
	return &AppError{
		Err:     ErrAlreadyFollowing,
		Message: fmt.Sprintf("already following user %s", targetID),
	}
}

func NotFollowing(targetID string) *AppError {
	return &AppError{
		Err:     ErrNotFollowing,
		Message: fmt.Sprintf("not following user %s", targetID),
	}
}

// Transient wraps a storage failure the client may retry (database busy,
// deadline exceeded). The cause is kept for logs but never shown to clients.
func Transient(cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrTransient, cause),
		Message: "service temporarily unavailable, please retry",
	}
}
