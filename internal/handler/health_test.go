package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHandleHealthz(t *testing.T) {
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	HandleHealthz().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHandleReadyz(t *testing.T) {
	t.Run("database connected", func(t *testing.T) {
		mockDB := &MockDBPool{}
		mockDB.On("Ping", mock.Anything).Return(nil)

		req := httptest.NewRequest("GET", "/readyz", nil)
		w := httptest.NewRecorder()

		HandleReadyz(mockDB).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
		mockDB.AssertExpectations(t)
	})

	t.Run("database down", func(t *testing.T) {
		mockDB := &MockDBPool{}
		mockDB.On("Ping", mock.Anything).Return(assert.AnError)

		req := httptest.NewRequest("GET", "/readyz", nil)
		w := httptest.NewRecorder()

		HandleReadyz(mockDB).ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"unavailable"`)
	})
}

func TestHandleVersion(t *testing.T) {
	req := httptest.NewRequest("GET", "/version", nil)
	w := httptest.NewRecorder()

	HandleVersion().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"go_version"`)
}
