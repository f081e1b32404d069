package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/mapping"
)

func mappingTestRouter(h *MappingHandlers) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1/mappings", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/test", h.HandleTest)
	})
	return r
}

func TestHandleTestMapping_DryRun(t *testing.T) {
	mappingID := uuid.New()
	mappings := &MockMappingRepository{}
	mappings.On("GetByID", mock.Anything, mappingID).Return(&domain.Mapping{
		ID:   mappingID,
		Name: "person-to-contact",
		Fields: []domain.FieldMapping{
			{Target: "fullName", Source: "name"},
			{Target: "origin", Source: "crm"},
		},
	}, nil)

	h := NewMappingHandlers(mappings, mapping.NewEngine())

	body := []byte(`{"data":{"name":"Ada Lovelace","ignored":true}}`)
	req := httptest.NewRequest("POST", "/api/v1/mappings/"+mappingID.String()+"/test", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mappingTestRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fullName":"Ada Lovelace"`)
	assert.Contains(t, w.Body.String(), `"origin":"crm"`)
	assert.NotContains(t, w.Body.String(), "ignored")
}

func TestHandleTestMapping_UnknownMapping(t *testing.T) {
	mappingID := uuid.New()
	mappings := &MockMappingRepository{}
	mappings.On("GetByID", mock.Anything, mappingID).Return(nil, domain.ErrMappingNotFound)

	h := NewMappingHandlers(mappings, mapping.NewEngine())

	req := httptest.NewRequest("POST", "/api/v1/mappings/"+mappingID.String()+"/test", bytes.NewReader([]byte(`{"data":{}}`)))
	w := httptest.NewRecorder()
	mappingTestRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleTestMapping_MissingData(t *testing.T) {
	mappingID := uuid.New()
	mappings := &MockMappingRepository{}
	mappings.On("GetByID", mock.Anything, mappingID).Return(&domain.Mapping{ID: mappingID, Name: "m"}, nil)

	h := NewMappingHandlers(mappings, mapping.NewEngine())

	req := httptest.NewRequest("POST", "/api/v1/mappings/"+mappingID.String()+"/test", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	mappingTestRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetMapping(t *testing.T) {
	mappingID := uuid.New()
	mappings := &MockMappingRepository{}
	mappings.On("GetByID", mock.Anything, mappingID).Return(&domain.Mapping{ID: mappingID, Name: "person-to-contact"}, nil)

	h := NewMappingHandlers(mappings, mapping.NewEngine())

	req := httptest.NewRequest("GET", "/api/v1/mappings/"+mappingID.String(), nil)
	w := httptest.NewRecorder()
	mappingTestRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "person-to-contact")
}
