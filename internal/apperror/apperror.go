// internal/apperror/apperror.go
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the application distinguishes.
// Code classifies failures with errors.Is; the API layer translates each
// class to an HTTP status.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrMalformedInput marks caller errors such as an unparseable
	// repository URL. Not retryable.
	ErrMalformedInput = errors.New("malformed input")

	// ErrOwnershipMismatch rejects a whole bulk operation when any of the
	// requested entities does not belong to the caller.
	ErrOwnershipMismatch = errors.New("ownership mismatch")

	// Upstream errors returned by source clients. Unavailable and
	// RateLimited are retryable; NotFound is not.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamRateLimited = errors.New("upstream rate limited")
	ErrUpstreamNotFound    = errors.New("upstream not found")

	// ErrSyncInProgress means another sync already holds the per-repository
	// slot. The conflicting trigger fails fast without touching state.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// Error carries a human-readable message (and optionally the offending
// field) along with one of the sentinel classes above.
type Error struct {
	Err     error  // sentinel class
	Message string // human-readable message
	Field   string // optional: field causing the error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *Error {
	return &Error{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %v not found", resource, id),
	}
}

func Validation(field, message string) *Error {
	return &Error{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *Error {
	return &Error{Err: ErrConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Err: ErrUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Err: ErrForbidden, Message: message}
}

func MalformedInput(message string) *Error {
	return &Error{Err: ErrMalformedInput, Message: message}
}

func OwnershipMismatch(message string) *Error {
	return &Error{Err: ErrOwnershipMismatch, Message: message}
}

func UpstreamUnavailable(message string) *Error {
	return &Error{Err: ErrUpstreamUnavailable, Message: message}
}

func UpstreamRateLimited(message string) *Error {
	return &Error{Err: ErrUpstreamRateLimited, Message: message}
}

func UpstreamNotFound(message string) *Error {
	return &Error{Err: ErrUpstreamNotFound, Message: message}
}

func SyncInProgress(repositoryID int64) *Error {
	return &Error{
		Err:     ErrSyncInProgress,
		Message: fmt.Sprintf("repository %d is already being synced", repositoryID),
	}
}

// Retryable reports whether err is a transient failure worth retrying.
// Rate-limited responses count as retryable after backoff; everything the
// caller did wrong (not found, malformed input, ownership) does not.
func Retryable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamRateLimited)
}
