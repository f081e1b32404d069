package reconciler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/mapping"
	"github.com/syncline/syncline/internal/rules"
)

// stubPipeline passes data through and records which timings fired
type stubPipeline struct {
	terminal *rules.Terminal
	applied  []domain.RuleTiming
}

func (s *stubPipeline) Apply(_ context.Context, _ []uuid.UUID, timing domain.RuleTiming, _ domain.RuleAction, data map[string]any) (map[string]any, *rules.Terminal, error) {
	s.applied = append(s.applied, timing)
	if timing == domain.RuleTimingBefore && s.terminal != nil {
		return data, s.terminal, nil
	}
	return data, nil, nil
}

func (s *stubPipeline) SetFollowUpFunc(rules.FollowUpFunc) {}

// stubWriter simulates a target that assigns a stable id
type stubWriter struct {
	actions []domain.ContractAction
}

func (s *stubWriter) Write(_ context.Context, _ *domain.Synchronization, contract *domain.SynchronizationContract, object map[string]any, action domain.ContractAction) (map[string]any, error) {
	s.actions = append(s.actions, action)
	now := time.Now()
	contract.TargetLastAction = action
	contract.TargetLastSynced = &now
	if action == domain.ContractActionDelete {
		contract.TargetID = ""
		contract.TargetHash = ""
		return nil, nil
	}
	if contract.TargetID == "" {
		contract.TargetID = "t-1"
	}
	hash, err := mapping.ObjectHash(object)
	if err != nil {
		return nil, err
	}
	contract.TargetHash = hash
	return object, nil
}

type fixture struct {
	contracts *MockContractRepository
	runs      *MockRunRepository
	mappings  *MockMappingRepository
	pipeline  *stubPipeline
	writer    *stubWriter
	r         Reconciler
	run       *domain.SyncRun
}

func newFixture() *fixture {
	f := &fixture{
		contracts: new(MockContractRepository),
		runs:      new(MockRunRepository),
		mappings:  new(MockMappingRepository),
		pipeline:  &stubPipeline{},
		writer:    &stubWriter{},
	}
	f.r = NewReconciler(f.contracts, f.runs, f.mappings, f.pipeline, f.writer)
	f.run = &domain.SyncRun{ID: uuid.New(), Status: domain.RunStatusRunning}
	return f
}

func newSync() *domain.Synchronization {
	return &domain.Synchronization{
		ID:         uuid.New(),
		Name:       "test-sync",
		SourceType: domain.SourceTypeAPI,
		TargetType: domain.TargetTypeRegister,
		IsEnabled:  true,
	}
}

func TestReconcile_NewObjectCreates(t *testing.T) {
	f := newFixture()
	sync := newSync()

	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(nil, domain.ErrContractNotFound)
	f.contracts.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.runs.On("CreateContractLog", mock.Anything, mock.Anything).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, map[string]any{"id": "p1", "name": "Ada"}, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCreate, result.Outcome)
	require.NotNil(t, result.Contract)
	assert.Equal(t, "p1", result.Contract.OriginID)
	assert.Equal(t, "t-1", result.Contract.TargetID)
	assert.NotEmpty(t, result.Contract.OriginHash)
	assert.NotNil(t, result.Contract.SourceLastSynced)
	assert.Equal(t, []domain.ContractAction{domain.ContractActionCreate}, f.writer.actions)
	assert.Equal(t, []domain.RuleTiming{domain.RuleTimingBefore, domain.RuleTimingAfter}, f.pipeline.applied)
	require.NotNil(t, result.Log)
	assert.Equal(t, domain.OutcomeCreate, result.Log.Outcome)
	assert.Contains(t, f.run.ContractLogIDs, result.Log.ID)
}

func TestReconcile_UnchangedObjectSkips(t *testing.T) {
	f := newFixture()
	sync := newSync()
	object := map[string]any{"id": "p1", "name": "Ada"}

	hash, err := mapping.ObjectHash(object)
	require.NoError(t, err)
	checked := time.Now().Add(-time.Hour)
	sync.UpdatedAt = checked.Add(-time.Hour)
	contract := &domain.SynchronizationContract{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		OriginID:          "p1",
		OriginHash:        hash,
		TargetID:          "t-1",
		TargetHash:        "existing",
		SourceLastChecked: &checked,
	}
	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(contract, nil)
	f.contracts.On("Save", mock.Anything, contract).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, object, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkip, result.Outcome)
	assert.Empty(t, f.writer.actions)
	assert.Empty(t, f.pipeline.applied)
	// the check timestamp still advances
	assert.True(t, contract.SourceLastChecked.After(checked))
}

func TestReconcile_ChangedObjectUpdates(t *testing.T) {
	f := newFixture()
	sync := newSync()

	checked := time.Now().Add(-time.Hour)
	contract := &domain.SynchronizationContract{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		OriginID:          "p1",
		OriginHash:        "old-hash",
		TargetID:          "t-1",
		TargetHash:        "old-target-hash",
		SourceLastChecked: &checked,
	}
	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(contract, nil)
	f.contracts.On("Save", mock.Anything, contract).Return(nil)
	f.runs.On("CreateContractLog", mock.Anything, mock.Anything).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, map[string]any{"id": "p1", "name": "Ada Lovelace"}, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdate, result.Outcome)
	assert.Equal(t, []domain.ContractAction{domain.ContractActionUpdate}, f.writer.actions)
	assert.NotEqual(t, "old-hash", contract.OriginHash)
	assert.NotNil(t, contract.SourceLastChanged)
}

func TestReconcile_ForceBypassesSkip(t *testing.T) {
	f := newFixture()
	sync := newSync()
	object := map[string]any{"id": "p1", "name": "Ada"}

	hash, err := mapping.ObjectHash(object)
	require.NoError(t, err)
	checked := time.Now().Add(-time.Hour)
	contract := &domain.SynchronizationContract{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		OriginID:          "p1",
		OriginHash:        hash,
		TargetID:          "t-1",
		TargetHash:        "existing",
		SourceLastChecked: &checked,
	}
	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(contract, nil)
	f.contracts.On("Save", mock.Anything, contract).Return(nil)
	f.runs.On("CreateContractLog", mock.Anything, mock.Anything).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, object, f.run, Options{Force: true})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdate, result.Outcome)
	assert.Equal(t, []domain.ContractAction{domain.ContractActionUpdate}, f.writer.actions)
}

func TestReconcile_ConfigChangeInvalidatesSkip(t *testing.T) {
	f := newFixture()
	sync := newSync()
	object := map[string]any{"id": "p1", "name": "Ada"}

	hash, err := mapping.ObjectHash(object)
	require.NoError(t, err)
	checked := time.Now().Add(-time.Hour)
	// synchronization reconfigured after the last check
	sync.UpdatedAt = time.Now()
	contract := &domain.SynchronizationContract{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		OriginID:          "p1",
		OriginHash:        hash,
		TargetID:          "t-1",
		TargetHash:        "stale",
		SourceLastChecked: &checked,
	}
	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(contract, nil)
	f.contracts.On("Save", mock.Anything, contract).Return(nil)
	f.runs.On("CreateContractLog", mock.Anything, mock.Anything).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, object, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpdate, result.Outcome)
	assert.NotEmpty(t, f.writer.actions)
}

func TestReconcile_TargetUnchangedSkipsWrite(t *testing.T) {
	f := newFixture()
	sync := newSync()
	object := map[string]any{"id": "p1", "name": "Ada"}

	// origin changed, but the mapped result matches what the target has
	targetHash, err := mapping.ObjectHash(object)
	require.NoError(t, err)
	checked := time.Now().Add(-time.Hour)
	contract := &domain.SynchronizationContract{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		OriginID:          "p1",
		OriginHash:        "old-hash",
		TargetID:          "t-1",
		TargetHash:        targetHash,
		SourceLastChecked: &checked,
	}
	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(contract, nil)
	f.contracts.On("Save", mock.Anything, contract).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, object, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkip, result.Outcome)
	assert.Empty(t, f.writer.actions)
	// the origin hash catches up so the next run takes the cheap skip path
	assert.NotEqual(t, "old-hash", contract.OriginHash)
}

func TestReconcile_MissingOriginIDIsInvalid(t *testing.T) {
	f := newFixture()
	sync := newSync()
	f.runs.On("CreateContractLog", mock.Anything, mock.Anything).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, map[string]any{"name": "Ada"}, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalid, result.Outcome)
	require.NotNil(t, result.Log)
	assert.Contains(t, result.Log.Message, domain.ErrMsgOriginIDMissing)
	f.contracts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestReconcile_UnstructuredObjectIsInvalid(t *testing.T) {
	f := newFixture()
	sync := newSync()
	f.runs.On("CreateContractLog", mock.Anything, mock.Anything).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, "plain-string", f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalid, result.Outcome)
	assert.Empty(t, f.writer.actions)
}

func TestReconcile_ConditionsSkipWithoutContract(t *testing.T) {
	f := newFixture()
	sync := newSync()
	sync.Conditions = json.RawMessage(`{"==": [{"var": "status"}, "active"]}`)

	result, err := f.r.Reconcile(context.Background(), sync, map[string]any{"id": "p1", "status": "archived"}, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkip, result.Outcome)
	f.contracts.AssertNotCalled(t, "GetByOrigin", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_ErrorRuleMarksInvalid(t *testing.T) {
	f := newFixture()
	f.pipeline.terminal = &rules.Terminal{RuleID: uuid.New(), Message: "object rejected"}
	sync := newSync()

	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(nil, domain.ErrContractNotFound)
	f.runs.On("CreateContractLog", mock.Anything, mock.Anything).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, map[string]any{"id": "p1"}, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInvalid, result.Outcome)
	assert.Equal(t, "object rejected", result.Log.Message)
	assert.Empty(t, f.writer.actions)
}

func TestReconcile_TestModeReportsSkipWithPreview(t *testing.T) {
	f := newFixture()
	sync := newSync()

	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(nil, domain.ErrContractNotFound)

	result, err := f.r.Reconcile(context.Background(), sync, map[string]any{"id": "p1", "name": "Ada"}, f.run, Options{Test: true})

	require.NoError(t, err)
	// a new object would be created, but a test run stops before the write
	// and reports skip
	assert.Equal(t, domain.OutcomeSkip, result.Outcome)
	assert.Empty(t, f.writer.actions)
	f.contracts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.runs.AssertNotCalled(t, "CreateContractLog", mock.Anything, mock.Anything)
	// the log previews the object that a real run would write
	require.NotNil(t, result.Log)
	assert.Equal(t, "Ada", result.Log.Target["name"])
	assert.Contains(t, result.Log.Message, "create")
}

func TestReconcile_TestModeExistingTargetPreviewsUpdate(t *testing.T) {
	f := newFixture()
	sync := newSync()

	contract := &domain.SynchronizationContract{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		OriginID:          "p1",
		OriginHash:        "stale",
		TargetID:          "t-1",
		TargetHash:        "stale",
	}
	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(contract, nil)

	result, err := f.r.Reconcile(context.Background(), sync, map[string]any{"id": "p1", "name": "Ada"}, f.run, Options{Test: true})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkip, result.Outcome)
	assert.Empty(t, f.writer.actions)
	require.NotNil(t, result.Log)
	assert.Contains(t, result.Log.Message, "update")
}

func TestReconcile_HashMappingNarrowsChangeDetection(t *testing.T) {
	f := newFixture()
	sync := newSync()
	hashMapping := &domain.Mapping{
		ID: uuid.New(),
		Fields: []domain.FieldMapping{
			{Target: "name", Source: "name"},
		},
	}
	sync.SourceHashMapping = &hashMapping.ID
	f.mappings.On("GetByID", mock.Anything, hashMapping.ID).Return(hashMapping, nil)

	// only volatile metadata changed; the hashed projection is identical
	object := map[string]any{"id": "p1", "name": "Ada", "fetchedAt": "2026-08-31T10:00:00Z"}
	projection, err := mapping.ObjectHash(map[string]any{"name": "Ada"})
	require.NoError(t, err)

	checked := time.Now().Add(-time.Hour)
	sync.UpdatedAt = checked.Add(-time.Hour)
	contract := &domain.SynchronizationContract{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		OriginID:          "p1",
		OriginHash:        projection,
		TargetID:          "t-1",
		TargetHash:        "existing",
		SourceLastChecked: &checked,
	}
	f.contracts.On("GetByOrigin", mock.Anything, sync.ID, "p1").Return(contract, nil)
	f.contracts.On("Save", mock.Anything, contract).Return(nil)

	result, err := f.r.Reconcile(context.Background(), sync, object, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkip, result.Outcome)
	assert.Empty(t, f.writer.actions)
}

func TestReconcileDelete_CascadesAndRemovesContract(t *testing.T) {
	f := newFixture()
	sync := newSync()

	contract := &domain.SynchronizationContract{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		OriginID:          "p1",
		TargetID:          "t-1",
		TargetHash:        "h",
	}
	f.runs.On("CreateContractLog", mock.Anything, mock.Anything).Return(nil)
	f.contracts.On("Delete", mock.Anything, contract.ID).Return(nil)

	result, err := f.r.ReconcileDelete(context.Background(), sync, contract, f.run, Options{})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDelete, result.Outcome)
	assert.Equal(t, []domain.ContractAction{domain.ContractActionDelete}, f.writer.actions)
	f.contracts.AssertCalled(t, "Delete", mock.Anything, contract.ID)
}

func TestReconcileDelete_TestModeIsPreviewOnly(t *testing.T) {
	f := newFixture()
	sync := newSync()

	contract := &domain.SynchronizationContract{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		OriginID:          "p1",
		TargetID:          "t-1",
		TargetHash:        "h",
	}

	result, err := f.r.ReconcileDelete(context.Background(), sync, contract, f.run, Options{Test: true})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDelete, result.Outcome)
	assert.Empty(t, f.writer.actions)
	f.contracts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
