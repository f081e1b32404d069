package handler

import (
	"net/http"

	"github.com/syncline/syncline/internal/repository"
)

// RunHandlers exposes run inspection
type RunHandlers struct {
	runs repository.Run
}

// NewRunHandlers creates the run handler set
func NewRunHandlers(runs repository.Run) *RunHandlers {
	return &RunHandlers{runs: runs}
}

// HandleGet returns one run
func (h *RunHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: run})
}

// HandleListContractLogs returns the per-object audit records of a run
func (h *RunHandlers) HandleListContractLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	logs, err := h.runs.ListContractLogsByRun(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: logs})
}
