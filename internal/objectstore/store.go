// Package objectstore is the register/schema backend the engine reads
// internal objects from and writes reconciled objects to.
package objectstore

import (
	"context"
)

// Store is the narrow object store capability the engine consumes.
// Objects are schemaless JSON documents addressed by register, schema and id.
type Store interface {
	// Find returns the object with the given id, or domain.ErrObjectNotFound
	Find(ctx context.Context, register, schema, id string) (map[string]any, error)

	// FindAll returns all objects of a register/schema, optionally
	// filtered on top-level field equality
	FindAll(ctx context.Context, register, schema string, filters map[string]any) ([]map[string]any, error)

	// Save creates or updates an object. An empty id creates a new object;
	// the returned object carries the definitive id under "id".
	Save(ctx context.Context, register, schema string, object map[string]any, id string) (map[string]any, error)

	// Delete removes the object with the given id
	Delete(ctx context.Context, register, schema, id string) error
}
