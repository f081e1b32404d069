package handler

import (
	"net/http"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/repository"
)

// RuleHandlers exposes rule management
type RuleHandlers struct {
	rules repository.Rule
}

// NewRuleHandlers creates the rule handler set
func NewRuleHandlers(rules repository.Rule) *RuleHandlers {
	return &RuleHandlers{rules: rules}
}

// HandleList returns all rules
func (h *RuleHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list rules", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: rules})
}

// HandleGet returns one rule
func (h *RuleHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	rule, err := h.rules.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: rule})
}

// HandleCreate creates a rule
func (h *RuleHandlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var rule domain.Rule
	if err := DecodeAndValidateRequest(r, w, &rule, "Create rule"); err != nil {
		return
	}
	if !rule.Type.IsValid() {
		respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestSummary)
		return
	}
	if err := h.rules.Save(r.Context(), &rule); err != nil {
		logger.FromContext(r.Context()).Error("Failed to create rule", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, DataResponse{Data: rule})
}

// HandleUpdate updates a rule
func (h *RuleHandlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	if _, err := h.rules.GetByID(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	var rule domain.Rule
	if err := DecodeAndValidateRequest(r, w, &rule, "Update rule"); err != nil {
		return
	}
	if !rule.Type.IsValid() {
		respondError(w, http.StatusBadRequest, ErrMsgInvalidRequestSummary)
		return
	}
	rule.ID = id
	if err := h.rules.Save(r.Context(), &rule); err != nil {
		logger.FromContext(r.Context()).Error("Failed to update rule", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: rule})
}

// HandleDelete removes a rule
func (h *RuleHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamUUID(r, w, "id")
	if !ok {
		return
	}
	if err := h.rules.Delete(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "rule deleted"})
}
