package objectstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/pathutil"
)

// MemoryStore is an in-memory Store used in tests and as a default backend
// when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]map[string]any
}

// NewMemoryStore creates an empty in-memory object store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]map[string]any),
	}
}

func key(register, schema, id string) string {
	return fmt.Sprintf("%s/%s/%s", register, schema, id)
}

// Find returns the object with the given id
func (s *MemoryStore) Find(_ context.Context, register, schema, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	object, ok := s.objects[key(register, schema, id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, id)
	}
	return pathutil.DeepCopy(object), nil
}

// FindAll returns all objects of a register/schema matching the filters
func (s *MemoryStore) FindAll(_ context.Context, register, schema string, filters map[string]any) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := fmt.Sprintf("%s/%s/", register, schema)
	var out []map[string]any
	for k, object := range s.objects {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		if !matchesFilters(object, filters) {
			continue
		}
		out = append(out, pathutil.DeepCopy(object))
	}
	return out, nil
}

// Save creates or updates an object
func (s *MemoryStore) Save(_ context.Context, register, schema string, object map[string]any, id string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	stored := pathutil.DeepCopy(object)
	stored["id"] = id
	s.objects[key(register, schema, id)] = stored
	return pathutil.DeepCopy(stored), nil
}

// Delete removes the object with the given id
func (s *MemoryStore) Delete(_ context.Context, register, schema, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(register, schema, id)
	if _, ok := s.objects[k]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, id)
	}
	delete(s.objects, k)
	return nil
}

func matchesFilters(object, filters map[string]any) bool {
	for k, expected := range filters {
		if object[k] != expected {
			return false
		}
	}
	return true
}
