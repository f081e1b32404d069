package rules

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/syncline/syncline/internal/domain"
)

// MockRuleRepository implements repository.Rule for testing
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Rule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rule), args.Error(1)
}

func (m *MockRuleRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Rule, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rule), args.Error(1)
}

func (m *MockRuleRepository) List(ctx context.Context) ([]domain.Rule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rule), args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *domain.Rule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMappingRepository implements repository.Mapping for testing
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Mapping, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mapping), args.Error(1)
}

func (m *MockMappingRepository) List(ctx context.Context) ([]domain.Mapping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Mapping), args.Error(1)
}

func (m *MockMappingRepository) Save(ctx context.Context, mapping *domain.Mapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
