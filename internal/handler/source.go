package handler

import (
	"net/http"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/repository"
)

// SourceHandlers exposes source configuration management
type SourceHandlers struct {
	sources repository.Source
}

// NewSourceHandlers creates the source handler set
func NewSourceHandlers(sources repository.Source) *SourceHandlers {
	return &SourceHandlers{sources: sources}
}

// HandleList returns all sources
func (h *SourceHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	sources, err := h.sources.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list sources", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: sources})
}

// HandleGet returns one source
func (h *SourceHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	source, err := h.sources.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: source})
}

// HandleCreate creates a source
func (h *SourceHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var source domain.Source
	if err := DecodeAndValidateRequest(r, w, &source, "Create source"); err != nil {
		return
	}
	if err := h.sources.Save(r.Context(), &source); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create source", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, DataResponse{Data: source})
}

// HandleUpdate updates a source
func (h *SourceHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	if _, err := h.sources.GetByID(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	var source domain.Source
	if err := DecodeAndValidateRequest(r, w, &source, "Update source"); err != nil {
		return
	}
	source.ID = id
	if err := h.sources.Save(r.Context(), &source); err != nil {
		logger.FromContext(r.Context()).Error("Failed to update source", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: source})
}

// HandleDelete removes a source
func (h *SourceHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	if err := h.sources.Delete(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "source deleted"})
}
