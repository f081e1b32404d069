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

const synchronizationColumns = `id, name, description, source_type, source_id, source_config,
	target_type, target_id, target_config,
	source_target_mapping, target_source_mapping, source_hash_mapping,
	conditions, actions, follow_ups, current_page, is_enabled, created_at, updated_at`

// SynchronizationRepository persists synchronization configurations
type SynchronizationRepository struct {
	db *pgxpool.Pool
}

// NewSynchronizationRepository creates a new PostgreSQL synchronization repository
func NewSynchronizationRepository(db *pgxpool.Pool) *SynchronizationRepository {
	return &SynchronizationRepository{db: db}
}

func scanSynchronization(row rowScanner) (*domain.Synchronization, error) {
	var (
		s            domain.Synchronization
		sourceConfig []byte
		targetConfig []byte
		conditions   []byte
		actions      []byte
		followUps    []byte
	)
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.SourceType, &s.SourceID, &sourceConfig,
		&s.TargetType, &s.TargetID, &targetConfig,
		&s.SourceTargetMapping, &s.TargetSourceMapping, &s.SourceHashMapping,
		&conditions, &actions, &followUps, &s.CurrentPage, &s.IsEnabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(sourceConfig, &s.SourceConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source config: %w", err)
	}
	if err := unmarshalJSON(targetConfig, &s.TargetConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target config: %w", err)
	}
	if len(conditions) > 0 {
		s.Conditions = conditions
	}
	if err := unmarshalJSON(actions, &s.ActionIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal action ids: %w", err)
	}
	if err := unmarshalJSON(followUps, &s.FollowUpIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal follow-up ids: %w", err)
	}
	return &s, nil
}

// GetByID returns the synchronization with the given id
func (r *SynchronizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Synchronization, error) {
	row := r.db.QueryRow(ctx, `SELECT `+synchronizationColumns+` FROM synchronizations WHERE id = $1`, id)
	sync, err := scanSynchronization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSynchronizationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get synchronization: %w", err)
	}
	return sync, nil
}

// List returns all synchronizations ordered by name
func (r *SynchronizationRepository) List(ctx context.Context) ([]domain.Synchronization, error) {
	rows, err := r.db.Query(ctx, `SELECT `+synchronizationColumns+` FROM synchronizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list synchronizations: %w", err)
	}
	defer rows.Close()
	return collectSynchronizations(rows)
}

// ListBySourceRegister finds enabled synchronizations reading from a
// register/schema pair. Register sources address their register as
// "register/schema" in the source id.
func (r *SynchronizationRepository) ListBySourceRegister(ctx context.Context, register, schema string) ([]domain.Synchronization, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+synchronizationColumns+` FROM synchronizations
		WHERE source_type = $1 AND source_id = $2 AND is_enabled
		ORDER BY name`,
		domain.SourceTypeRegister, register+"/"+schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list synchronizations by register: %w", err)
	}
	defer rows.Close()
	return collectSynchronizations(rows)
}

func collectSynchronizations(rows pgx.Rows) ([]domain.Synchronization, error) {
	var syncs []domain.Synchronization
	for rows.Next() {
		sync, err := scanSynchronization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan synchronization: %w", err)
		}
		syncs = append(syncs, *sync)
	}
	return syncs, rows.Err()
}

// Save creates or updates a synchronization
func (r *SynchronizationRepository) Save(ctx context.Context, sync *domain.Synchronization) error {
	if sync.ID == uuid.Nil {
		sync.ID = uuid.New()
	}
	if sync.CurrentPage < 1 {
		sync.CurrentPage = 1
	}
	sourceConfig, err := marshalJSON(sync.SourceConfig, "{}")
	if err != nil {
		return err
	}
	targetConfig, err := marshalJSON(sync.TargetConfig, "{}")
	if err != nil {
		return err
	}
	actions, err := marshalJSON(sync.ActionIDs, "[]")
	if err != nil {
		return err
	}
	followUps, err := marshalJSON(sync.FollowUpIDs, "[]")
	if err != nil {
		return err
	}
	var conditions []byte
	if sync.HasConditions() {
		conditions = sync.Conditions
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO synchronizations (id, name, description, source_type, source_id, source_config,
			target_type, target_id, target_config,
			source_target_mapping, target_source_mapping, source_hash_mapping,
			conditions, actions, follow_ups, current_page, is_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			source_type = EXCLUDED.source_type,
			source_id = EXCLUDED.source_id,
			source_config = EXCLUDED.source_config,
			target_type = EXCLUDED.target_type,
			target_id = EXCLUDED.target_id,
			target_config = EXCLUDED.target_config,
			source_target_mapping = EXCLUDED.source_target_mapping,
			target_source_mapping = EXCLUDED.target_source_mapping,
			source_hash_mapping = EXCLUDED.source_hash_mapping,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			follow_ups = EXCLUDED.follow_ups,
			current_page = EXCLUDED.current_page,
			is_enabled = EXCLUDED.is_enabled,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		sync.ID, sync.Name, sync.Description, sync.SourceType, sync.SourceID, sourceConfig,
		sync.TargetType, sync.TargetID, targetConfig,
		sync.SourceTargetMapping, sync.TargetSourceMapping, sync.SourceHashMapping,
		conditions, actions, followUps, sync.CurrentPage, sync.IsEnabled)

	if err := row.Scan(&sync.CreatedAt, &sync.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save synchronization: %w", err)
	}
	return nil
}

// UpdateCurrentPage persists the pagination resume cursor. It deliberately
// leaves updated_at alone: advancing the cursor is run bookkeeping, not a
// configuration change, and must not invalidate unchanged-object skips.
func (r *SynchronizationRepository) UpdateCurrentPage(ctx context.Context, id uuid.UUID, page int) error {
	if page < 1 {
		page = 1
	}
	tag, err := r.db.Exec(ctx, `UPDATE synchronizations SET current_page = $2 WHERE id = $1`, id, page)
	if err != nil {
		return fmt.Errorf("failed to update current page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSynchronizationNotFound, id)
	}
	return nil
}

// Delete removes a synchronization and, through cascades, its contracts and runs
func (r *SynchronizationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM synchronizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete synchronization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSynchronizationNotFound, id)
	}
	return nil
}
