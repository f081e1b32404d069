package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/domain"
)

// Synchronization defines the interface for synchronization configuration persistence
type Synchronization interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Synchronization, error)
	List(ctx context.Context) ([]domain.Synchronization, error)
	Save(ctx context.Context, sync *domain.Synchronization) error
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateCurrentPage persists the pagination resume cursor. Written
	// after every successfully fetched page so a crashed or rate-limited
	// run resumes rather than restarts.
	UpdateCurrentPage(ctx context.Context, id uuid.UUID, page int) error

	// ListBySourceRegister finds synchronizations reading from a
	// register/schema pair, used to route object mutation events to
	// outbound synchronizations.
	ListBySourceRegister(ctx context.Context, register, schema string) ([]domain.Synchronization, error)
}

// Source defines the interface for source configuration persistence
type Source interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error)
	List(ctx context.Context) ([]domain.Source, error)
	Save(ctx context.Context, source *domain.Source) error
	Delete(ctx context.Context, id uuid.UUID) error
}
