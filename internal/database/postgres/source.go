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

const sourceColumns = `id, name, location, headers, query, timeout, rate_limit, is_enabled, created_at, updated_at`

// SourceRepository persists source configurations
type SourceRepository struct {
	db *pgxpool.Pool
}

// NewSourceRepository creates a new PostgreSQL source repository
func NewSourceRepository(db *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: db}
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var (
		s       domain.Source
		headers []byte
		query   []byte
	)
	err := row.Scan(&s.ID, &s.Name, &s.Location, &headers, &query,
		&s.Timeout, &s.RateLimit, &s.IsEnabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(headers, &s.Headers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source headers: %w", err)
	}
	if err := unmarshalJSON(query, &s.Query); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source query: %w", err)
	}
	return &s, nil
}

// GetByID returns the source with the given id
func (r *SourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = $1`, id)
	source, err := scanSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return source, nil
}

// List returns all sources ordered by name
func (r *SourceRepository) List(ctx context.Context) ([]domain.Source, error) {
	rows, err := r.db.Query(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *source)
	}
	return sources, rows.Err()
}

// Save creates or updates a source
func (r *SourceRepository) Save(ctx context.Context, source *domain.Source) error {
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	headers, err := marshalJSON(source.Headers, "{}")
	if err != nil {
		return err
	}
	query, err := marshalJSON(source.Query, "{}")
	if err != nil {
		return err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO sources (id, name, location, headers, query, timeout, rate_limit, is_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			headers = EXCLUDED.headers,
			query = EXCLUDED.query,
			timeout = EXCLUDED.timeout,
			rate_limit = EXCLUDED.rate_limit,
			is_enabled = EXCLUDED.is_enabled,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		source.ID, source.Name, source.Location, headers, query,
		source.Timeout, source.RateLimit, source.IsEnabled)

	if err := row.Scan(&source.CreatedAt, &source.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}
	return nil
}

// Delete removes a source
func (r *SourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return nil
}
