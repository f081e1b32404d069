package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/domain"
)

// Run defines the interface for synchronization run log persistence
type Run interface {
	Create(ctx context.Context, run *domain.SyncRun) error

	// Update applies the single terminal update a run receives when it
	// finishes.
	Update(ctx context.Context, run *domain.SyncRun) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncRun, error)
	ListBySynchronization(ctx context.Context, synchronizationID uuid.UUID, limit int) ([]domain.SyncRun, error)

	CreateContractLog(ctx context.Context, log *domain.ContractLog) error
	ListContractLogsByRun(ctx context.Context, runID uuid.UUID) ([]domain.ContractLog, error)

	// PurgeExpiredContractLogs deletes contract logs whose expiry passed
	PurgeExpiredContractLogs(ctx context.Context, before time.Time) (int64, error)
}
