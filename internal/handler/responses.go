package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/syncline/syncline/internal/domain"
)

// Standard response types for consistent API responses

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// DataResponse represents a response with data payload
type DataResponse struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondDomainError maps a service error onto an HTTP response. Rate limit
// errors carry the upstream X-RateLimit-* headers through to the client.
func respondDomainError(w http.ResponseWriter, err error) {
	var rateErr *domain.RateLimitError
	if errors.As(err, &rateErr) {
		for k, v := range rateErr.Headers() {
			w.Header().Set(k, v)
		}
		respondError(w, http.StatusTooManyRequests, ErrMsgTooManyRequestsError)
		return
	}

	switch {
	case errors.Is(err, domain.ErrSynchronizationNotFound),
		errors.Is(err, domain.ErrSourceNotFound),
		errors.Is(err, domain.ErrMappingNotFound),
		errors.Is(err, domain.ErrRuleNotFound),
		errors.Is(err, domain.ErrContractNotFound),
		errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrObjectNotFound):
		respondError(w, http.StatusNotFound, ErrMsgResourceNotFound)
	case errors.Is(err, domain.ErrRunInProgress):
		respondError(w, http.StatusConflict, ErrMsgRunAlreadyInProgress)
	case errors.Is(err, domain.ErrFollowUpCycle):
		respondError(w, http.StatusConflict, domain.ErrMsgFollowUpCycle)
	case errors.Is(err, domain.ErrInvalidConfiguration),
		errors.Is(err, domain.ErrUnsupportedSourceType),
		errors.Is(err, domain.ErrUnsupportedTargetType):
		respondError(w, http.StatusBadRequest, ErrMsgSyncDisabled)
	default:
		respondError(w, http.StatusInternalServerError, ErrMsgGenericServerError)
	}
}
