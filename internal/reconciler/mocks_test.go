package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/rules"
)

// MockContractRepository implements repository.Contract for testing
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

// MockRunRepository implements repository.Run for testing
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

// MockPipeline implements rules.Pipeline for testing
type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Apply(ctx context.Context, ruleIDs []uuid.UUID, timing domain.RuleTiming, action domain.RuleAction, data map[string]any) (map[string]any, *rules.Terminal, error) {
	args := m.Called(ctx, ruleIDs, timing, action, data)
	var result map[string]any
	if args.Get(0) != nil {
		result = args.Get(0).(map[string]any)
	}
	var terminal *rules.Terminal
	if args.Get(1) != nil {
		terminal = args.Get(1).(*rules.Terminal)
	}
	return result, terminal, args.Error(2)
}

func (m *MockPipeline) SetFollowUpFunc(fn rules.FollowUpFunc) {
	m.Called(fn)
}

// MockWriter implements writer.Writer for testing
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) Write(ctx context.Context, sync *domain.Synchronization, contract *domain.SynchronizationContract, object map[string]any, action domain.ContractAction) (map[string]any, error) {
	args := m.Called(ctx, sync, contract, object, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}
