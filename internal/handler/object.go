package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/syncline/syncline/internal/event"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/objectstore"
)

// ObjectHandlers exposes the register store. Mutations publish object
// events so synchronizations reading the register pick the change up.
type ObjectHandlers struct {
	store objectstore.Store
	bus   event.Bus
}

// NewObjectHandlers creates the register object handler set
func NewObjectHandlers(store objectstore.Store, bus event.Bus) *ObjectHandlers {
	return &ObjectHandlers{store: store, bus: bus}
}

// HandleList returns objects of a register/schema. Query parameters filter
// on top-level field equality.
func (h *ObjectHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	register := chi.URLParam(r, "register")
	schema := chi.URLParam(r, "schema")

	filters := make(map[string]any)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}

	objects, err := h.store.FindAll(r.Context(), register, schema, filters)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list objects", "error", err)
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: objects})
}

// HandleGet returns one object
func (h *ObjectHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	register := chi.URLParam(r, "register")
	schema := chi.URLParam(r, "schema")
	id := chi.URLParam(r, "id")

	object, err := h.store.Find(r.Context(), register, schema, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, DataResponse{Data: object})
}

// HandleSave creates or updates an object and publishes the matching event
func (h *ObjectHandlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	register := chi.URLParam(r, "register")
	schema := chi.URLParam(r, "schema")
	id := chi.URLParam(r, "id")
	log := logger.FromContext(r.Context())

	var object map[string]any
	if err := json.NewDecoder(r.Body).Decode(&object); err != nil {
		log.Error("Failed to decode object", "error", err)
		respondError(w, http.StatusBadRequest, ErrMsgInvalidRequest)
		return
	}

	eventType := event.ObjectCreated
	if id != "" {
		if _, err := h.store.Find(r.Context(), register, schema, id); err == nil {
			eventType = event.ObjectUpdated
		}
	}

	saved, err := h.store.Save(r.Context(), register, schema, object, id)
	if err != nil {
		log.Error("Failed to save object", "error", err)
		respondDomainError(w, err)
		return
	}

	savedID, _ := saved["id"].(string)
	if err := h.bus.Publish(r.Context(), event.NewObjectEvent(eventType, register, schema, savedID)); err != nil {
		log.Warn("Object event delivery failed", "error", err, "type", eventType)
	}

	status := http.StatusOK
	if eventType == event.ObjectCreated {
		status = http.StatusCreated
	}
	respondJSON(w, status, DataResponse{Data: saved})
}

// HandleDelete removes an object and publishes the delete event
func (h *ObjectHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	register := chi.URLParam(r, "register")
	schema := chi.URLParam(r, "schema")
	id := chi.URLParam(r, "id")
	log := logger.FromContext(r.Context())

	if err := h.store.Delete(r.Context(), register, schema, id); err != nil {
		respondDomainError(w, err)
		return
	}

	if err := h.bus.Publish(r.Context(), event.NewObjectEvent(event.ObjectDeleted, register, schema, id)); err != nil {
		log.Warn("Object event delivery failed", "error", err, "type", event.ObjectDeleted)
	}
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "object deleted"})
}
