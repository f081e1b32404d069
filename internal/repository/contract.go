package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/domain"
)

// Contract defines the interface for synchronization contract persistence.
// The (synchronizationId, originId) pair is unique; Save upserts on it.
type Contract interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.SynchronizationContract, error)
	GetByOrigin(ctx context.Context, synchronizationID uuid.UUID, originID string) (*domain.SynchronizationContract, error)
	GetByTarget(ctx context.Context, synchronizationID uuid.UUID, targetID string) (*domain.SynchronizationContract, error)
	ListBySynchronization(ctx context.Context, synchronizationID uuid.UUID) ([]domain.SynchronizationContract, error)
	Save(ctx context.Context, contract *domain.SynchronizationContract) error

	// Delete removes a contract after its source object disappeared and
	// the cascading target delete completed.
	Delete(ctx context.Context, id uuid.UUID) error
}
