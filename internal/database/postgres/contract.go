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

const contractColumns = `id, synchronization_id, origin_id, origin_hash, target_id, target_hash, target_last_action,
	source_last_changed, source_last_checked, source_last_synced, target_last_changed, target_last_synced,
	created_at, updated_at`

// ContractRepository persists synchronization contracts
type ContractRepository struct {
	db *pgxpool.Pool
}

// NewContractRepository creates a new PostgreSQL contract repository
func NewContractRepository(db *pgxpool.Pool) *ContractRepository {
	return &ContractRepository{db: db}
}

func scanContract(row rowScanner) (*domain.SynchronizationContract, error) {
	var c domain.SynchronizationContract
	err := row.Scan(&c.ID, &c.SynchronizationID, &c.OriginID, &c.OriginHash,
		&c.TargetID, &c.TargetHash, &c.TargetLastAction,
		&c.SourceLastChanged, &c.SourceLastChecked, &c.SourceLastSynced,
		&c.TargetLastChanged, &c.TargetLastSynced,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID returns the contract with the given id
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SynchronizationContract, error) {
	row := r.db.QueryRow(ctx, `SELECT `+contractColumns+` FROM sync_contracts WHERE id = $1`, id)
	contract, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrContractNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return contract, nil
}

// GetByOrigin returns the contract tracking an origin object
func (r *ContractRepository) GetByOrigin(ctx context.Context, synchronizationID uuid.UUID, originID string) (*domain.SynchronizationContract, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+contractColumns+` FROM sync_contracts
		WHERE synchronization_id = $1 AND origin_id = $2`,
		synchronizationID, originID)
	contract, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: origin %s", domain.ErrContractNotFound, originID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract by origin: %w", err)
	}
	return contract, nil
}

// GetByTarget returns the contract tracking a target object
func (r *ContractRepository) GetByTarget(ctx context.Context, synchronizationID uuid.UUID, targetID string) (*domain.SynchronizationContract, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+contractColumns+` FROM sync_contracts
		WHERE synchronization_id = $1 AND target_id = $2`,
		synchronizationID, targetID)
	contract, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: target %s", domain.ErrContractNotFound, targetID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract by target: %w", err)
	}
	return contract, nil
}

// ListBySynchronization returns all contracts of a synchronization
func (r *ContractRepository) ListBySynchronization(ctx context.Context, synchronizationID uuid.UUID) ([]domain.SynchronizationContract, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+contractColumns+` FROM sync_contracts
		WHERE synchronization_id = $1
		ORDER BY origin_id`,
		synchronizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []domain.SynchronizationContract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, *contract)
	}
	return contracts, rows.Err()
}

// Save upserts a contract on its (synchronization_id, origin_id) pair.
// Concurrent reconciliations of the same origin converge on one row.
func (r *ContractRepository) Save(ctx context.Context, contract *domain.SynchronizationContract) error {
	if contract.ID == uuid.Nil {
		contract.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO sync_contracts (id, synchronization_id, origin_id, origin_hash,
			target_id, target_hash, target_last_action,
			source_last_changed, source_last_checked, source_last_synced,
			target_last_changed, target_last_synced)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (synchronization_id, origin_id) DO UPDATE SET
			origin_hash = EXCLUDED.origin_hash,
			target_id = EXCLUDED.target_id,
			target_hash = EXCLUDED.target_hash,
			target_last_action = EXCLUDED.target_last_action,
			source_last_changed = EXCLUDED.source_last_changed,
			source_last_checked = EXCLUDED.source_last_checked,
			source_last_synced = EXCLUDED.source_last_synced,
			target_last_changed = EXCLUDED.target_last_changed,
			target_last_synced = EXCLUDED.target_last_synced,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		contract.ID, contract.SynchronizationID, contract.OriginID, contract.OriginHash,
		contract.TargetID, contract.TargetHash, contract.TargetLastAction,
		contract.SourceLastChanged, contract.SourceLastChecked, contract.SourceLastSynced,
		contract.TargetLastChanged, contract.TargetLastSynced)

	if err := row.Scan(&contract.ID, &contract.CreatedAt, &contract.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

// Delete removes a contract
func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sync_contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrContractNotFound, id)
	}
	return nil
}
