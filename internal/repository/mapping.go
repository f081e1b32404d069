package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/domain"
)

// Mapping defines the interface for mapping recipe persistence
type Mapping interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Mapping, error)
	List(ctx context.Context) ([]domain.Mapping, error)
	Save(ctx context.Context, mapping *domain.Mapping) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Rule defines the interface for rule persistence
type Rule interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Rule, error)

	// GetByIDs resolves a set of rule references. Unresolvable ids are
	// silently absent from the result; the pipeline drops them.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Rule, error)

	List(ctx context.Context) ([]domain.Rule, error)
	Save(ctx context.Context, rule *domain.Rule) error
	Delete(ctx context.Context, id uuid.UUID) error
}
