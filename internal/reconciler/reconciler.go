// Package reconciler drives one object through the contract state machine:
// change detection, mapping, rules and the target write.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/syncline/syncline/internal/conditions"
	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/mapping"
	"github.com/syncline/syncline/internal/pathutil"
	"github.com/syncline/syncline/internal/repository"
	"github.com/syncline/syncline/internal/rules"
	"github.com/syncline/syncline/internal/writer"
)

// logRetention is how long contract logs are kept before purging
const logRetention = 30 * 24 * time.Hour

// Options modify how an object is reconciled
type Options struct {
	// Test previews the reconciliation without persisting or writing
	Test bool
	// Force bypasses the unchanged-object skip
	Force bool
}

// Result is the outcome of reconciling one object
type Result struct {
	Contract *domain.SynchronizationContract
	Log      *domain.ContractLog
	Outcome  domain.Outcome
}

// Reconciler applies one fetched object, or one disappeared origin, to the
// target side of a synchronization.
type Reconciler interface {
	Reconcile(ctx context.Context, sync *domain.Synchronization, object any, run *domain.SyncRun, opts Options) (*Result, error)

	// ReconcileDelete cascades the removal of an origin object that is no
	// longer present in the source.
	ReconcileDelete(ctx context.Context, sync *domain.Synchronization, contract *domain.SynchronizationContract, run *domain.SyncRun, opts Options) (*Result, error)
}

type reconciler struct {
	contracts repository.Contract
	runs      repository.Run
	mappings  repository.Mapping
	engine    *mapping.Engine
	evaluator *conditions.Evaluator
	pipeline  rules.Pipeline
	writer    writer.Writer
	now       func() time.Time
}

// NewReconciler creates a contract reconciler
func NewReconciler(contracts repository.Contract, runs repository.Run, mappings repository.Mapping, pipeline rules.Pipeline, target writer.Writer) Reconciler {
	return &reconciler{
		contracts: contracts,
		runs:      runs,
		mappings:  mappings,
		engine:    mapping.NewEngine(),
		evaluator: conditions.NewEvaluator(),
		pipeline:  pipeline,
		writer:    target,
		now:       time.Now,
	}
}

func (r *reconciler) Reconcile(ctx context.Context, sync *domain.Synchronization, object any, run *domain.SyncRun, opts Options) (*Result, error) {
	log := logger.FromContext(ctx)

	record, ok := object.(map[string]any)
	if !ok {
		return r.finish(ctx, run, opts, &Result{Outcome: domain.OutcomeInvalid}, nil,
			fmt.Sprintf("object is not a structured record: %T", object), nil, nil, sync)
	}

	if sync.HasConditions() {
		pass, err := r.evaluator.Evaluate(sync.Conditions, record)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate synchronization conditions: %w", err)
		}
		if !pass {
			return &Result{Outcome: domain.OutcomeSkip}, nil
		}
	}

	originValue, ok := pathutil.Get(record, sync.IDPath())
	if !ok {
		return r.finish(ctx, run, opts, &Result{Outcome: domain.OutcomeInvalid}, nil,
			fmt.Sprintf("%s: no value at %q", domain.ErrMsgOriginIDMissing, sync.IDPath()), record, nil, sync)
	}
	originID := cast.ToString(originValue)
	if originID == "" {
		return r.finish(ctx, run, opts, &Result{Outcome: domain.OutcomeInvalid}, nil,
			fmt.Sprintf("%s: empty value at %q", domain.ErrMsgOriginIDMissing, sync.IDPath()), record, nil, sync)
	}

	contract, err := r.contracts.GetByOrigin(ctx, sync.ID, originID)
	if err != nil {
		if !errors.Is(err, domain.ErrContractNotFound) {
			return nil, fmt.Errorf("failed to look up contract: %w", err)
		}
		contract = &domain.SynchronizationContract{
			ID:                uuid.New(),
			SynchronizationID: sync.ID,
			OriginID:          originID,
		}
	}

	originHash, err := r.originHash(ctx, sync, record)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if r.shouldSkip(ctx, sync, contract, originHash, opts) {
		contract.SourceLastChecked = &now
		if !opts.Test {
			if err := r.contracts.Save(ctx, contract); err != nil {
				return nil, fmt.Errorf("failed to save contract: %w", err)
			}
		}
		return &Result{Contract: contract, Outcome: domain.OutcomeSkip}, nil
	}

	if contract.OriginHash != originHash {
		contract.SourceLastChanged = &now
	}
	contract.SourceLastChecked = &now

	action := domain.ContractActionCreate
	outcome := domain.OutcomeCreate
	if contract.HasTarget() {
		action = domain.ContractActionUpdate
		outcome = domain.OutcomeUpdate
	}

	mapped, err := r.mapObject(ctx, sync, record)
	if err != nil {
		return nil, err
	}

	mapped, terminal, err := r.pipeline.Apply(ctx, sync.ActionIDs, domain.RuleTimingBefore, domain.RuleAction(action), mapped)
	if err != nil {
		return nil, err
	}
	if terminal != nil {
		return r.finish(ctx, run, opts, &Result{Contract: contract, Outcome: domain.OutcomeInvalid}, contract,
			terminal.Message, record, mapped, sync)
	}

	// A target-side no-op is still a skip even when the raw origin changed,
	// e.g. when the mapping drops the fields that moved.
	targetHash, err := mapping.ObjectHash(mapped)
	if err != nil {
		return nil, fmt.Errorf("failed to hash mapped object: %w", err)
	}
	if !opts.Force && contract.HasTarget() && targetHash == contract.TargetHash {
		contract.OriginHash = originHash
		if !opts.Test {
			if err := r.contracts.Save(ctx, contract); err != nil {
				return nil, fmt.Errorf("failed to save contract: %w", err)
			}
		}
		return &Result{Contract: contract, Outcome: domain.OutcomeSkip}, nil
	}

	// A test run stops before the target write and reports skip; the log
	// carries the mapped object as the preview of what would be written.
	if opts.Test {
		log.Info("Test run, skipping target write", "synchronization", sync.ID, "origin", originID)
		return r.finish(ctx, run, opts, &Result{Contract: contract, Outcome: domain.OutcomeSkip}, contract,
			fmt.Sprintf("preview only, would %s", action), record, mapped, sync)
	}

	written, err := r.writer.Write(ctx, sync, contract, mapped, action)
	if err != nil {
		return nil, err
	}

	if _, _, err := r.pipeline.Apply(ctx, sync.ActionIDs, domain.RuleTimingAfter, domain.RuleAction(action), written); err != nil {
		log.Warn("After rules failed", "synchronization", sync.ID, "origin", originID, "error", err)
	}

	contract.OriginHash = originHash
	contract.SourceLastSynced = &now
	if err := r.contracts.Save(ctx, contract); err != nil {
		return nil, fmt.Errorf("failed to save contract: %w", err)
	}

	return r.finish(ctx, run, opts, &Result{Contract: contract, Outcome: outcome}, contract,
		"", record, written, sync)
}

func (r *reconciler) ReconcileDelete(ctx context.Context, sync *domain.Synchronization, contract *domain.SynchronizationContract, run *domain.SyncRun, opts Options) (*Result, error) {
	if opts.Test {
		return &Result{Contract: contract, Outcome: domain.OutcomeDelete}, nil
	}

	if contract.HasTarget() {
		if _, err := r.writer.Write(ctx, sync, contract, nil, domain.ContractActionDelete); err != nil {
			return nil, err
		}
		if _, _, err := r.pipeline.Apply(ctx, sync.ActionIDs, domain.RuleTimingAfter, domain.RuleActionDelete, map[string]any{"originId": contract.OriginID}); err != nil {
			logger.FromContext(ctx).Warn("After rules failed on delete",
				"synchronization", sync.ID, "origin", contract.OriginID, "error", err)
		}
	}

	result := &Result{Contract: contract, Outcome: domain.OutcomeDelete}
	result, err := r.finish(ctx, run, opts, result, contract, "", nil, nil, sync)
	if err != nil {
		return nil, err
	}

	if err := r.contracts.Delete(ctx, contract.ID); err != nil {
		return nil, fmt.Errorf("failed to delete contract: %w", err)
	}
	return result, nil
}

// originHash computes the change-detection hash of a source object, through
// the configured hash mapping when one is set.
func (r *reconciler) originHash(ctx context.Context, sync *domain.Synchronization, record map[string]any) (string, error) {
	subject := record
	if sync.SourceHashMapping != nil {
		m, err := r.mappings.GetByID(ctx, *sync.SourceHashMapping)
		if err != nil {
			return "", fmt.Errorf("failed to resolve hash mapping: %w", err)
		}
		subject, err = r.engine.Execute(ctx, m, record)
		if err != nil {
			return "", err
		}
	}
	hash, err := mapping.ObjectHash(subject)
	if err != nil {
		return "", fmt.Errorf("failed to hash origin object: %w", err)
	}
	return hash, nil
}

// shouldSkip decides whether the object can be skipped as unchanged. All of
// these must hold: the origin hash is unchanged, the synchronization and its
// mapping were not reconfigured since the last check, the contract tracks a
// written target, and the run is not forced.
func (r *reconciler) shouldSkip(ctx context.Context, sync *domain.Synchronization, contract *domain.SynchronizationContract, originHash string, opts Options) bool {
	if opts.Force {
		return false
	}
	if contract.OriginHash != originHash {
		return false
	}
	if !contract.HasTarget() {
		return false
	}
	if contract.SourceLastChecked == nil {
		return false
	}
	checked := *contract.SourceLastChecked
	if sync.UpdatedAt.After(checked) {
		return false
	}
	if sync.SourceTargetMapping != nil {
		m, err := r.mappings.GetByID(ctx, *sync.SourceTargetMapping)
		if err == nil && m.UpdatedAt.After(checked) {
			return false
		}
	}
	return true
}

// mapObject applies the source-to-target mapping, or copies the object when
// no mapping is configured.
func (r *reconciler) mapObject(ctx context.Context, sync *domain.Synchronization, record map[string]any) (map[string]any, error) {
	if sync.SourceTargetMapping == nil {
		return pathutil.DeepCopy(record), nil
	}
	m, err := r.mappings.GetByID(ctx, *sync.SourceTargetMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mapping: %w", err)
	}
	return r.engine.Execute(ctx, m, record)
}

// finish attaches a contract log to the result and persists it unless the
// run is a test.
func (r *reconciler) finish(ctx context.Context, run *domain.SyncRun, opts Options, result *Result, contract *domain.SynchronizationContract, message string, source, target map[string]any, sync *domain.Synchronization) (*Result, error) {
	now := r.now()
	expires := now.Add(logRetention)
	entry := &domain.ContractLog{
		ID:                uuid.New(),
		RunID:             run.ID,
		SynchronizationID: sync.ID,
		Source:            source,
		Target:            target,
		Outcome:           result.Outcome,
		Message:           message,
		ExpiresAt:         &expires,
		CreatedAt:         now,
	}
	if contract != nil {
		entry.ContractID = contract.ID
	}
	result.Log = entry

	if opts.Test {
		return result, nil
	}
	if err := r.runs.CreateContractLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create contract log: %w", err)
	}
	run.ContractLogIDs = append(run.ContractLogIDs, entry.ID)
	return result, nil
}
