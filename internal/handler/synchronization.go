package handler

import (
	"net/http"
	"strconv"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/orchestrator"
	"github.com/syncline/syncline/internal/repository"
	"github.com/syncline/syncline/internal/worker"
)

// SynchronizationHandlers bundles the synchronization configuration and run API
type SynchronizationHandlers struct {
	syncs        repository.Synchronization
	contracts    repository.Contract
	runs         repository.Run
	orchestrator orchestrator.Service
	pool         *worker.Pool
}

// NewSynchronizationHandlers creates the synchronization handler set
func NewSynchronizationHandlers(syncs repository.Synchronization, contracts repository.Contract, runs repository.Run, orch orchestrator.Service, pool *worker.Pool) *SynchronizationHandlers {
	return &SynchronizationHandlers{
		syncs:        syncs,
		contracts:    contracts,
		runs:         runs,
		orchestrator: orch,
		pool:         pool,
	}
}

// HandleList returns all synchronizations
func (h *SynchronizationHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	syncs, err := h.syncs.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list synchronizations", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: syncs})
}

// HandleGet returns one synchronization
func (h *SynchronizationHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	sync, err := h.syncs.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: sync})
}

// HandleCreate creates a synchronization
func (h *SynchronizationHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var sync domain.Synchronization
	if err := DecodeAndValidateRequest(r, w, &sync, "Create synchronization"); err != nil {
		return
	}
	if err := h.syncs.Save(r.Context(), &sync); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create synchronization", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, DataResponse{Data: sync})
}

// HandleUpdate updates a synchronization
func (h *SynchronizationHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	if _, err := h.syncs.GetByID(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	var sync domain.Synchronization
	if err := DecodeAndValidateRequest(r, w, &sync, "Update synchronization"); err != nil {
		return
	}
	sync.ID = id
	if err := h.syncs.Save(r.Context(), &sync); err != nil {
		logger.FromContext(r.Context()).Error("Failed to update synchronization", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: sync})
}

// HandleDelete removes a synchronization
func (h *SynchronizationHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	if err := h.syncs.Delete(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "synchronization deleted"})
}

// HandleRun triggers a run. Test runs execute synchronously and return the
// preview run without persisting anything; regular runs are handed to the
// worker pool and acknowledged with 202.
func (h *SynchronizationHandlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	opts := orchestrator.RunOptions{
		Test:  queryFlag(r, "test"),
		Force: queryFlag(r, "force"),
	}

	if opts.Test {
		run, err := h.orchestrator.Run(r.Context(), id, opts)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, DataResponse{Data: run})
		return
	}

	// The synchronization must exist before we acknowledge the job
	if _, err := h.syncs.GetByID(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	job := worker.RunJob{Orchestrator: h.orchestrator, SynchronizationID: id, Options: opts}
	if !h.pool.TryEnqueue(job) {
		respondError(w, http.StatusServiceUnavailable, ErrMsgRunQueueFull)
		return
	}
	respondJSON(w, http.StatusAccepted, SuccessResponse{Message: "synchronization run enqueued"})
}

// HandleListRuns returns the most recent runs of a synchronization
func (h *SynchronizationHandlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.runs.ListBySynchronization(r.Context(), id, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: runs})
}

// HandleListContracts returns the contracts of a synchronization
func (h *SynchronizationHandlers) HandleListContracts(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	contracts, err := h.contracts.ListBySynchronization(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: contracts})
}

func queryFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
