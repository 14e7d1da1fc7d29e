// internal/api/respond.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

// errorResponse is the error envelope every failed request returns.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// rateLimitHint replaces the upstream's terse rate-limit error so users
// know how to fix it themselves.
const rateLimitHint = "GitHub API rate limit exceeded. Please configure a GitHub token in Settings."

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, errorResponse{Error: http.StatusText(status), Message: message})
}

// respondAppError translates the application error taxonomy to HTTP. Errors
// outside the taxonomy are logged and hidden behind a 500.
func respondAppError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, message := http.StatusInternalServerError, "Internal server error"

	switch {
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrMalformedInput),
		errors.Is(err, apperror.ErrOwnershipMismatch):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperror.ErrUpstreamRateLimited):
		status, message = http.StatusBadRequest, rateLimitHint
	case errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrUpstreamNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, apperror.ErrUnauthorized):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, apperror.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, apperror.ErrConflict), errors.Is(err, apperror.ErrSyncInProgress):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperror.ErrUpstreamUnavailable):
		status, message = http.StatusBadGateway, err.Error()
	case errors.Is(err, tasks.ErrQueueFull):
		status, message = http.StatusServiceUnavailable, err.Error()
	default:
		logger.Error("request failed", "error", err)
	}

	resp := errorResponse{Error: http.StatusText(status), Message: message}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		resp.Field = appErr.Field
	}
	respondWithJSON(w, status, resp)
}

// decodeJSON reads the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.MalformedInput("invalid request body: " + err.Error())
	}
	return nil
}
