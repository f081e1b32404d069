package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/syncline/syncline/internal/domain"
)

const defaultRunListLimit = 50

const runColumns = `id, synchronization_id, status, message, counters, stage_timings, contract_logs,
	test, force, started_at, completed_at, execution_time`

const contractLogColumns = `id, contract_id, run_id, synchronization_id, source, target, outcome, message, expires_at, created_at`

// RunRepository persists synchronization run logs and their contract logs
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

func scanRun(row rowScanner) (*domain.SyncRun, error) {
	var (
		run          domain.SyncRun
		counters     []byte
		stageTimings []byte
		contractLogs []byte
	)
	err := row.Scan(&run.ID, &run.SynchronizationID, &run.Status, &run.Message,
		&counters, &stageTimings, &contractLogs,
		&run.Test, &run.Force, &run.StartedAt, &run.CompletedAt, &run.ExecutionTime)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(counters, &run.Counters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run counters: %w", err)
	}
	if err := unmarshalJSON(stageTimings, &run.StageTimings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run stage timings: %w", err)
	}
	if err := unmarshalJSON(contractLogs, &run.ContractLogIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run contract log ids: %w", err)
	}
	return &run, nil
}

// Create inserts a new run row when the run starts
func (r *RunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	counters, err := marshalJSON(run.Counters, "{}")
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO sync_runs (id, synchronization_id, status, message, counters, test, force, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.SynchronizationID, run.Status, run.Message, counters,
		run.Test, run.Force, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Update applies the terminal update a run receives when it finishes
func (r *RunRepository) Update(ctx context.Context, run *domain.SyncRun) error {
	counters, err := marshalJSON(run.Counters, "{}")
	if err != nil {
		return err
	}
	stageTimings, err := marshalJSON(run.StageTimings, "{}")
	if err != nil {
		return err
	}
	contractLogs, err := marshalJSON(run.ContractLogIDs, "[]")
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE sync_runs SET
			status = $2,
			message = $3,
			counters = $4,
			stage_timings = $5,
			contract_logs = $6,
			completed_at = $7,
			execution_time = $8
		WHERE id = $1`,
		run.ID, run.Status, run.Message, counters, stageTimings, contractLogs,
		run.CompletedAt, run.ExecutionTime)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, run.ID)
	}
	return nil
}

// GetByID returns the run with the given id
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncRun, error) {
	row := r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM sync_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListBySynchronization returns the most recent runs of a synchronization
func (r *RunRepository) ListBySynchronization(ctx context.Context, synchronizationID uuid.UUID, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+runColumns+` FROM sync_runs
		WHERE synchronization_id = $1
		ORDER BY started_at DESC
		LIMIT $2`,
		synchronizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CreateContractLog inserts one reconciliation audit record
func (r *RunRepository) CreateContractLog(ctx context.Context, log *domain.ContractLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	source, err := marshalJSON(log.Source, "null")
	if err != nil {
		return err
	}
	target, err := marshalJSON(log.Target, "null")
	if err != nil {
		return err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO sync_contract_logs (id, contract_id, run_id, synchronization_id, source, target, outcome, message, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		log.ID, log.ContractID, log.RunID, log.SynchronizationID,
		source, target, log.Outcome, log.Message, log.ExpiresAt)
	if err := row.Scan(&log.CreatedAt); err != nil {
		return fmt.Errorf("failed to create contract log: %w", err)
	}
	return nil
}

// ListContractLogsByRun returns the contract logs written during a run
func (r *RunRepository) ListContractLogsByRun(ctx context.Context, runID uuid.UUID) ([]domain.ContractLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+contractLogColumns+` FROM sync_contract_logs
		WHERE run_id = $1
		ORDER BY created_at`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contract logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ContractLog
	for rows.Next() {
		var (
			log    domain.ContractLog
			source []byte
			target []byte
		)
		err := rows.Scan(&log.ID, &log.ContractID, &log.RunID, &log.SynchronizationID,
			&source, &target, &log.Outcome, &log.Message, &log.ExpiresAt, &log.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract log: %w", err)
		}
		if err := unmarshalJSON(source, &log.Source); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contract log source: %w", err)
		}
		if err := unmarshalJSON(target, &log.Target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contract log target: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// PurgeExpiredContractLogs deletes contract logs whose expiry passed
func (r *RunRepository) PurgeExpiredContractLogs(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM sync_contract_logs
		WHERE expires_at IS NOT NULL AND expires_at < $1`,
		before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired contract logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
