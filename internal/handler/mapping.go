package handler

import (
	"net/http"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/mapping"
	"github.com/syncline/syncline/internal/repository"
)

// MappingHandlers exposes mapping recipe management and dry runs
type MappingHandlers struct {
	mappings repository.Mapping
	engine   *mapping.Engine
}

// NewMappingHandlers creates the mapping handler set
func NewMappingHandlers(mappings repository.Mapping, engine *mapping.Engine) *MappingHandlers {
	return &MappingHandlers{mappings: mappings, engine: engine}
}

// HandleList returns all mappings
func (h *MappingHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.mappings.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list mappings", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: mappings})
}

// HandleGet returns one mapping
func (h *MappingHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	m, err := h.mappings.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: m})
}

// HandleCreate creates a mapping
func (h *MappingHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var m domain.Mapping
	if err := DecodeAndValidateRequest(r, w, &m, "Create mapping"); err != nil {
		return
	}
	if err := h.mappings.Save(r.Context(), &m); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create mapping", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, DataResponse{Data: m})
}

// HandleUpdate updates a mapping
func (h *MappingHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	if _, err := h.mappings.GetByID(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	var m domain.Mapping
	if err := DecodeAndValidateRequest(r, w, &m, "Update mapping"); err != nil {
		return
	}
	m.ID = id
	if err := h.mappings.Save(r.Context(), &m); err != nil {
		logger.FromContext(r.Context()).Error("Failed to update mapping", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: m})
}

// HandleDelete removes a mapping
func (h *MappingHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	if err := h.mappings.Delete(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "mapping deleted"})
}

// TestMappingRequest carries a sample object for a mapping dry run
type TestMappingRequest struct {
	Data map[string]any `json:"data" validate:"required"`
}

// HandleTest executes a mapping against a sample object without persisting
// anything, so recipes can be developed against real payloads.
func (h *MappingHandlers) HandleTest(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	m, err := h.mappings.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req TestMappingRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Test mapping"); err != nil {
		return
	}

	result, err := h.engine.Execute(r.Context(), m, req.Data)
	if err != nil {
		logger.FromContext(r.Context()).Error("Mapping dry run failed", "error", err, "mapping_id", id)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: result})
}
