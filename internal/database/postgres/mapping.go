package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncline/syncline/internal/domain"
)

const mappingColumns = `id, name, description, version, fields, unset, casts, pass_through, created_at, updated_at`

// MappingRepository persists mapping recipes
type MappingRepository struct {
	db *pgxpool.Pool
}

// NewMappingRepository creates a new PostgreSQL mapping repository
func NewMappingRepository(db *pgxpool.Pool) *MappingRepository {
	return &MappingRepository{db: db}
}

func scanMapping(row rowScanner) (*domain.Mapping, error) {
	var (
		m      domain.Mapping
		fields []byte
		unset  []byte
		casts  []byte
	)
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Version,
		&fields, &unset, &casts, &m.PassThrough, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(fields, &m.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping fields: %w", err)
	}
	if err := unmarshalJSON(unset, &m.Unset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping unset paths: %w", err)
	}
	if err := unmarshalJSON(casts, &m.Casts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping casts: %w", err)
	}
	return &m, nil
}

// GetByID returns the mapping with the given id
func (r *MappingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Mapping, error) {
	row := r.db.QueryRow(ctx, `SELECT `+mappingColumns+` FROM mappings WHERE id = $1`, id)
	mapping, err := scanMapping(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMappingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	return mapping, nil
}

// List returns all mappings ordered by name
func (r *MappingRepository) List(ctx context.Context) ([]domain.Mapping, error) {
	rows, err := r.db.Query(ctx, `SELECT `+mappingColumns+` FROM mappings ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.Mapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, *mapping)
	}
	return mappings, rows.Err()
}

// Save creates or updates a mapping. Updating bumps the version.
func (r *MappingRepository) Save(ctx context.Context, mapping *domain.Mapping) error {
	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}
	if mapping.Version < 1 {
		mapping.Version = 1
	}
	fields, err := marshalJSON(mapping.Fields, "[]")
	if err != nil {
		return err
	}
	unset, err := marshalJSON(mapping.Unset, "[]")
	if err != nil {
		return err
	}
	casts, err := marshalJSON(mapping.Casts, "[]")
	if err != nil {
		return err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO mappings (id, name, description, version, fields, unset, casts, pass_through)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			version = mappings.version + 1,
			fields = EXCLUDED.fields,
			unset = EXCLUDED.unset,
			casts = EXCLUDED.casts,
			pass_through = EXCLUDED.pass_through,
			updated_at = NOW()
		RETURNING version, created_at, updated_at`,
		mapping.ID, mapping.Name, mapping.Description, mapping.Version,
		fields, unset, casts, mapping.PassThrough)

	if err := row.Scan(&mapping.Version, &mapping.CreatedAt, &mapping.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

// Delete removes a mapping
func (r *MappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM mappings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrMappingNotFound, id)
	}
	return nil
}
