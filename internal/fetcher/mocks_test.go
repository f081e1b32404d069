package fetcher

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

// MockSyncRepository implements repository.Synchronization for testing
type MockSyncRepository struct {
	mock.Mock
}

func (m *MockSyncRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Synchronization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Synchronization), args.Error(1)
}

func (m *MockSyncRepository) List(ctx context.Context) ([]domain.Synchronization, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Synchronization), args.Error(1)
}

func (m *MockSyncRepository) Save(ctx context.Context, sync *domain.Synchronization) error {
	args := m.Called(ctx, sync)
	return args.Error(0)
}

func (m *MockSyncRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSyncRepository) UpdateCurrentPage(ctx context.Context, id uuid.UUID, page int) error {
	args := m.Called(ctx, id, page)
	return args.Error(0)
}

func (m *MockSyncRepository) ListBySourceRegister(ctx context.Context, register, schema string) ([]domain.Synchronization, error) {
	args := m.Called(ctx, register, schema)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Synchronization), args.Error(1)
}
