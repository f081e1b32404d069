package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/logger"
)

// DecodeAndValidateRequest decodes a JSON request body, validates it and
// writes the error response on failure. A non-nil return means the handler
// should stop; the response has already been written.
func DecodeAndValidateRequest(r *http.Request, w http.ResponseWriter, req any, actionName string) error {
	log := logger.FromContext(r.Context())

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Error(fmt.Sprintf("Failed to decode %s request", actionName), "error", err)
		respondError(w, http.StatusBadRequest, ErrMsgInvalidRequest)
		return err
	}

	if err := GetValidator().ValidateStruct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:  ErrMsgInvalidRequestSummary,
			Fields: FormatValidationError(err),
		})
		return err
	}
	return nil
}

// urlParamUUID parses a uuid URL parameter, writing a 400 response on
// failure. The boolean reports whether the handler may continue.
func urlParamUUID(r *http.Request, w http.ResponseWriter, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrMsgInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
