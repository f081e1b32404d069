package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/pathutil"
)

// ObjectRepository is the PostgreSQL register store. Objects are schemaless
// JSONB documents addressed by register, schema and id.
type ObjectRepository struct {
	db *pgxpool.Pool
}

// NewObjectRepository creates a new PostgreSQL object repository
func NewObjectRepository(db *pgxpool.Pool) *ObjectRepository {
	return &ObjectRepository{db: db}
}

// Find returns the object with the given id
func (r *ObjectRepository) Find(ctx context.Context, register, schema, id string) (map[string]any, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `
		SELECT data FROM objects
		WHERE register = $1 AND schema = $2 AND object_id = $3`,
		register, schema, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find object: %w", err)
	}

	var object map[string]any
	if err := unmarshalJSON(data, &object); err != nil {
		return nil, fmt.Errorf("failed to unmarshal object: %w", err)
	}
	return object, nil
}

// FindAll returns all objects of a register/schema, optionally filtered on
// top-level field equality via JSONB containment.
func (r *ObjectRepository) FindAll(ctx context.Context, register, schema string, filters map[string]any) ([]map[string]any, error) {
	query := `SELECT data FROM objects WHERE register = $1 AND schema = $2`
	args := []any{register, schema}
	if len(filters) > 0 {
		filter, err := marshalJSON(filters, "{}")
		if err != nil {
			return nil, err
		}
		query += ` AND data @> $3`
		args = append(args, filter)
	}
	query += ` ORDER BY object_id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find objects: %w", err)
	}
	defer rows.Close()

	var objects []map[string]any
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		var object map[string]any
		if err := unmarshalJSON(data, &object); err != nil {
			return nil, fmt.Errorf("failed to unmarshal object: %w", err)
		}
		objects = append(objects, object)
	}
	return objects, rows.Err()
}

// Save creates or updates an object. An empty id creates a new object.
func (r *ObjectRepository) Save(ctx context.Context, register, schema string, object map[string]any, id string) (map[string]any, error) {
	if id == "" {
		id = uuid.NewString()
	}
	stored := pathutil.DeepCopy(object)
	stored["id"] = id

	data, err := marshalJSON(stored, "{}")
	if err != nil {
		return nil, err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO objects (register, schema, object_id, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (register, schema, object_id) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()`,
		register, schema, id, data)
	if err != nil {
		return nil, fmt.Errorf("failed to save object: %w", err)
	}
	return stored, nil
}

// Delete removes the object with the given id
func (r *ObjectRepository) Delete(ctx context.Context, register, schema, id string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM objects
		WHERE register = $1 AND schema = $2 AND object_id = $3`,
		register, schema, id)
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, id)
	}
	return nil
}
