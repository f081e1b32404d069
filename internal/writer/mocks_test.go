package writer

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/syncline/syncline/internal/domain"
)

// MockSourceRepository implements repository.Source for testing
type MockSourceRepository struct {
	mock.Mock
}

func (m *MockSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Source, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Source), args.Error(1)
}

func (m *MockSourceRepository) List(ctx context.Context) ([]domain.Source, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Source), args.Error(1)
}

func (m *MockSourceRepository) Save(ctx context.Context, source *domain.Source) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockSourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
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
