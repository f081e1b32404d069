package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/orchestrator"
)

// MockDBPool mocks the database.Pool interface
type MockDBPool struct {
	mock.Mock
}

func (m *MockDBPool) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDBPool) Close() {
	m.Called()
}

// MockSyncRepository mocks repository.Synchronization
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

// MockContractRepository mocks repository.Contract
type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SynchronizationContract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SynchronizationContract), args.Error(1)
}

func (m *MockContractRepository) GetByOrigin(ctx context.Context, synchronizationID uuid.UUID, originID string) (*domain.SynchronizationContract, error) {
	args := m.Called(ctx, synchronizationID, originID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SynchronizationContract), args.Error(1)
}

func (m *MockContractRepository) GetByTarget(ctx context.Context, synchronizationID uuid.UUID, targetID string) (*domain.SynchronizationContract, error) {
	args := m.Called(ctx, synchronizationID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SynchronizationContract), args.Error(1)
}

func (m *MockContractRepository) ListBySynchronization(ctx context.Context, synchronizationID uuid.UUID) ([]domain.SynchronizationContract, error) {
	args := m.Called(ctx, synchronizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SynchronizationContract), args.Error(1)
}

func (m *MockContractRepository) Save(ctx context.Context, contract *domain.SynchronizationContract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRunRepository mocks repository.Run
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) Update(ctx context.Context, run *domain.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SyncRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncRun), args.Error(1)
}

func (m *MockRunRepository) ListBySynchronization(ctx context.Context, synchronizationID uuid.UUID, limit int) ([]domain.SyncRun, error) {
	args := m.Called(ctx, synchronizationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SyncRun), args.Error(1)
}

func (m *MockRunRepository) CreateContractLog(ctx context.Context, log *domain.ContractLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockRunRepository) ListContractLogsByRun(ctx context.Context, runID uuid.UUID) ([]domain.ContractLog, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContractLog), args.Error(1)
}

func (m *MockRunRepository) PurgeExpiredContractLogs(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockMappingRepository mocks repository.Mapping
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

// MockOrchestrator mocks orchestrator.Service
type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Run(ctx context.Context, syncID uuid.UUID, opts orchestrator.RunOptions) (*domain.SyncRun, error) {
	args := m.Called(ctx, syncID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncRun), args.Error(1)
}
