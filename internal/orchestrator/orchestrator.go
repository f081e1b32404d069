// Package orchestrator executes synchronization runs end to end: fetch,
// reconcile, delete cascade and follow-ups, with one run log per execution.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/concurrency"
	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/event"
	"github.com/syncline/syncline/internal/fetcher"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/metrics"
	"github.com/syncline/syncline/internal/reconciler"
	"github.com/syncline/syncline/internal/repository"
	"github.com/syncline/syncline/internal/rules"
)

// maxFollowUpDepth bounds synchronization chains; deeper chains are treated
// as configuration cycles.
const maxFollowUpDepth = 5

// Stage timing keys recorded on each run
const (
	stageFetch     = "fetch"
	stageReconcile = "reconcile"
	stageCascade   = "cascade"
	stageFollowUps = "follow_ups"
)

// RunOptions modify how a synchronization run executes
type RunOptions struct {
	// Test previews the run: first object only, nothing persisted
	Test bool
	// Force re-writes objects even when change detection finds no change
	Force bool
}

// Service executes synchronization runs
type Service interface {
	// Run executes one synchronization. Only one run per synchronization
	// can be in flight; a concurrent call fails with ErrRunInProgress.
	Run(ctx context.Context, syncID uuid.UUID, opts RunOptions) (*domain.SyncRun, error)
}

type service struct {
	syncs     repository.Synchronization
	contracts repository.Contract
	runs      repository.Run
	fetch     fetcher.Fetcher
	reconcile reconciler.Reconciler
	bus       event.Bus
	guard     *concurrency.RunGuard
}

// NewService creates a run orchestrator. It wires itself into the rule
// pipeline as the follow-up runner and into the event bus as the handler
// for internal object mutations.
func NewService(syncs repository.Synchronization, contracts repository.Contract, runs repository.Run, fetch fetcher.Fetcher, reconcile reconciler.Reconciler, pipeline rules.Pipeline, bus event.Bus) Service {
	s := &service{
		syncs:     syncs,
		contracts: contracts,
		runs:      runs,
		fetch:     fetch,
		reconcile: reconcile,
		bus:       bus,
		guard:     concurrency.NewRunGuard(),
	}

	pipeline.SetFollowUpFunc(func(ctx context.Context, syncID uuid.UUID) error {
		_, err := s.Run(ctx, syncID, RunOptions{})
		return err
	})

	if bus != nil {
		bus.Subscribe(event.ObjectCreated, s.handleObjectEvent)
		bus.Subscribe(event.ObjectUpdated, s.handleObjectEvent)
		bus.Subscribe(event.ObjectDeleted, s.handleObjectEvent)
	}
	return s
}

func (s *service) Run(ctx context.Context, syncID uuid.UUID, opts RunOptions) (*domain.SyncRun, error) {
	chain := chainFromContext(ctx)
	if chain.depth >= maxFollowUpDepth || chain.visited[syncID] {
		return nil, fmt.Errorf("%w: synchronization %s at depth %d", domain.ErrFollowUpCycle, syncID, chain.depth)
	}

	release, ok := s.guard.TryAcquire(syncID.String())
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, syncID)
	}
	defer release()

	sync, err := s.syncs.GetByID(ctx, syncID)
	if err != nil {
		return nil, fmt.Errorf("failed to load synchronization: %w", err)
	}
	if !sync.IsEnabled {
		return nil, fmt.Errorf("%w: synchronization %s is disabled", domain.ErrInvalidConfiguration, syncID)
	}

	run := &domain.SyncRun{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		Status:            domain.RunStatusRunning,
		StageTimings:      map[string]int64{},
		Test:              opts.Test,
		Force:             opts.Force,
		StartedAt:         time.Now(),
	}
	ctx = logger.WithRunID(ctx, run.ID.String())
	// Every nested run, whether a follow-up or triggered by a rule, sees
	// this synchronization on the chain.
	ctx = contextWithChain(ctx, sync.ID)
	log := logger.FromContext(ctx)

	if !opts.Test {
		if err := s.runs.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
	}

	log.Info("Synchronization run started",
		"synchronization", sync.ID, "name", sync.Name, "test", opts.Test, "force", opts.Force)

	s.execute(ctx, sync, run, opts)

	now := time.Now()
	run.CompletedAt = &now
	run.ExecutionTime = now.Sub(run.StartedAt)
	if !opts.Test {
		if err := s.runs.Update(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to update run: %w", err)
		}
	}

	s.recordMetrics(sync, run)
	s.publishRunEvent(ctx, run)

	log.Info("Synchronization run finished",
		"synchronization", sync.ID, "status", run.Status,
		"found", run.Counters.Found, "created", run.Counters.Created,
		"updated", run.Counters.Updated, "deleted", run.Counters.Deleted,
		"skipped", run.Counters.Skipped, "invalid", run.Counters.Invalid,
		"duration", run.ExecutionTime)
	return run, nil
}

// execute drives the run stages and settles the terminal status on the run
func (s *service) execute(ctx context.Context, sync *domain.Synchronization, run *domain.SyncRun, opts RunOptions) {
	log := logger.FromContext(ctx)

	fetchStart := time.Now()
	objects, fetchErr := s.fetch.FetchAll(ctx, sync, opts.Test)
	run.StageTimings[stageFetch] = time.Since(fetchStart).Milliseconds()

	var rateErr *domain.RateLimitError
	rateLimited := errors.As(fetchErr, &rateErr)
	if fetchErr != nil && !rateLimited {
		run.Status = domain.RunStatusFailed
		run.Message = fetchErr.Error()
		return
	}

	run.Counters.Found = len(objects)

	reconcileStart := time.Now()
	seen := s.reconcileAll(ctx, sync, objects, run, opts)
	run.StageTimings[stageReconcile] = time.Since(reconcileStart).Milliseconds()

	if rateLimited {
		// Partial progress is kept; the cursor resumes this run later.
		run.Status = domain.RunStatusRateLimited
		run.Message = rateErr.Error()
		metrics.RateLimitHits.WithLabelValues(rateErr.SourceID).Inc()
		return
	}

	// Origins absent from a complete fetch have been removed at the source.
	if !opts.Test {
		cascadeStart := time.Now()
		s.cascadeDeletes(ctx, sync, seen, run, opts)
		run.StageTimings[stageCascade] = time.Since(cascadeStart).Milliseconds()
	}

	run.Status = domain.RunStatusCompleted

	if !opts.Test && len(sync.FollowUpIDs) > 0 {
		followUpStart := time.Now()
		s.runFollowUps(ctx, sync)
		run.StageTimings[stageFollowUps] = time.Since(followUpStart).Milliseconds()
	}

	log.Debug("Run stages completed", "timings", run.StageTimings)
}

// reconcileAll pushes every fetched object through the reconciler and
// returns the set of origin ids present in the source.
func (s *service) reconcileAll(ctx context.Context, sync *domain.Synchronization, objects []any, run *domain.SyncRun, opts RunOptions) map[string]bool {
	log := logger.FromContext(ctx)
	seen := make(map[string]bool, len(objects))

	for _, object := range objects {
		result, err := s.reconcile.Reconcile(ctx, sync, object, run, reconciler.Options{Test: opts.Test, Force: opts.Force})
		if err != nil {
			// One broken object must not abort the whole run
			log.Warn("Reconciliation failed for object", "synchronization", sync.ID, "error", err)
			run.Counters.Record(domain.OutcomeInvalid)
			continue
		}
		run.Counters.Record(result.Outcome)
		if result.Contract != nil {
			seen[result.Contract.OriginID] = true
			if !opts.Test {
				s.publishObjectEvent(ctx, sync, result)
			}
		}
	}
	return seen
}

// cascadeDeletes removes target objects whose origin disappeared from the
// source since the last run.
func (s *service) cascadeDeletes(ctx context.Context, sync *domain.Synchronization, seen map[string]bool, run *domain.SyncRun, opts RunOptions) {
	log := logger.FromContext(ctx)

	contracts, err := s.contracts.ListBySynchronization(ctx, sync.ID)
	if err != nil {
		log.Warn("Failed to list contracts for delete cascade", "synchronization", sync.ID, "error", err)
		return
	}

	// A fetch that found nothing while live contracts exist would cascade
	// into deleting the entire target set; a misconfigured results path
	// must not erase the target. A forced run still cascades.
	if !opts.Force && run.Counters.Found == 0 && len(contracts) > 0 {
		log.Warn("Fetch found no objects but contracts exist, skipping delete cascade",
			"synchronization", sync.ID, "contracts", len(contracts))
		return
	}

	for i := range contracts {
		contract := &contracts[i]
		if seen[contract.OriginID] {
			continue
		}
		result, err := s.reconcile.ReconcileDelete(ctx, sync, contract, run, reconciler.Options{Test: opts.Test, Force: opts.Force})
		if err != nil {
			log.Warn("Delete cascade failed for contract",
				"synchronization", sync.ID, "origin", contract.OriginID, "error", err)
			continue
		}
		run.Counters.Record(result.Outcome)
		s.publishObjectEvent(ctx, sync, result)
	}
}

// runFollowUps executes chained synchronizations. The chain carried in the
// context makes configuration cycles fail instead of looping.
func (s *service) runFollowUps(ctx context.Context, sync *domain.Synchronization) {
	log := logger.FromContext(ctx)

	for _, followUpID := range sync.FollowUpIDs {
		if _, err := s.Run(ctx, followUpID, RunOptions{}); err != nil {
			log.Warn("Follow-up synchronization failed",
				"synchronization", sync.ID, "follow_up", followUpID, "error", err)
		}
	}
}

// handleObjectEvent reconciles the single mutated object against every
// outbound synchronization reading the register it changed in.
func (s *service) handleObjectEvent(ctx context.Context, e event.Event) error {
	payload, ok := e.Payload.(event.ObjectPayloadV1)
	if !ok {
		return nil
	}

	syncs, err := s.syncs.ListBySourceRegister(ctx, payload.Register, payload.Schema)
	if err != nil {
		return fmt.Errorf("failed to find synchronizations for %s/%s: %w", payload.Register, payload.Schema, err)
	}

	log := logger.FromContext(ctx)
	deleted := e.Type == event.ObjectDeleted
	for i := range syncs {
		sync := &syncs[i]
		if !sync.IsEnabled {
			continue
		}
		if err := s.runObject(ctx, sync, payload.ObjectID, deleted); err != nil {
			// An in-flight full run covers the mutation
			if errors.Is(err, domain.ErrRunInProgress) {
				continue
			}
			log.Warn("Event-triggered run failed", "synchronization", sync.ID, "error", err)
		}
	}
	return nil
}

// runObject reconciles one mutated register object without re-fetching the
// whole source. It records a run of its own so the mutation is auditable.
func (s *service) runObject(ctx context.Context, sync *domain.Synchronization, objectID string, deleted bool) error {
	release, ok := s.guard.TryAcquire(sync.ID.String())
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRunInProgress, sync.ID)
	}
	defer release()

	run := &domain.SyncRun{
		ID:                uuid.New(),
		SynchronizationID: sync.ID,
		Status:            domain.RunStatusRunning,
		StageTimings:      map[string]int64{},
		StartedAt:         time.Now(),
	}
	ctx = logger.WithRunID(ctx, run.ID.String())
	ctx = contextWithChain(ctx, sync.ID)
	log := logger.FromContext(ctx)

	if err := s.runs.Create(ctx, run); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	reconcileStart := time.Now()
	s.executeObject(ctx, sync, run, objectID, deleted)
	run.StageTimings[stageReconcile] = time.Since(reconcileStart).Milliseconds()

	now := time.Now()
	run.CompletedAt = &now
	run.ExecutionTime = now.Sub(run.StartedAt)
	if err := s.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	s.recordMetrics(sync, run)
	s.publishRunEvent(ctx, run)

	log.Info("Single-object run finished",
		"synchronization", sync.ID, "object", objectID, "deleted", deleted, "status", run.Status)
	return nil
}

// executeObject drives a single-object run: a delete cascades the matching
// contract, a create or update reconciles the current object body.
func (s *service) executeObject(ctx context.Context, sync *domain.Synchronization, run *domain.SyncRun, objectID string, deleted bool) {
	if deleted {
		contract, err := s.contracts.GetByOrigin(ctx, sync.ID, objectID)
		if err != nil {
			if errors.Is(err, domain.ErrContractNotFound) {
				// never synchronized, nothing to cascade
				run.Status = domain.RunStatusCompleted
				return
			}
			run.Status = domain.RunStatusFailed
			run.Message = err.Error()
			return
		}
		result, err := s.reconcile.ReconcileDelete(ctx, sync, contract, run, reconciler.Options{})
		if err != nil {
			run.Status = domain.RunStatusFailed
			run.Message = err.Error()
			return
		}
		run.Counters.Record(result.Outcome)
		s.publishObjectEvent(ctx, sync, result)
		run.Status = domain.RunStatusCompleted
		return
	}

	object, err := s.fetch.FetchOne(ctx, sync, objectID)
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.Message = err.Error()
		return
	}
	run.Counters.Found = 1

	result, err := s.reconcile.Reconcile(ctx, sync, object, run, reconciler.Options{})
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.Message = err.Error()
		return
	}
	run.Counters.Record(result.Outcome)
	if result.Contract != nil {
		s.publishObjectEvent(ctx, sync, result)
	}
	run.Status = domain.RunStatusCompleted
}

// publishObjectEvent announces register-target mutations on the bus
func (s *service) publishObjectEvent(ctx context.Context, sync *domain.Synchronization, result *reconciler.Result) {
	if s.bus == nil || sync.TargetType != domain.TargetTypeRegister {
		return
	}
	if result.Contract == nil {
		return
	}

	var eventType event.Type
	switch result.Outcome {
	case domain.OutcomeCreate:
		eventType = event.ObjectCreated
	case domain.OutcomeUpdate:
		eventType = event.ObjectUpdated
	case domain.OutcomeDelete:
		eventType = event.ObjectDeleted
	default:
		return
	}

	e := event.NewObjectEvent(eventType, sync.TargetConfig.Register, sync.TargetConfig.Schema, result.Contract.TargetID)
	metrics.EventsPublished.WithLabelValues(string(eventType)).Inc()
	if err := s.bus.Publish(ctx, e); err != nil {
		metrics.EventHandlerErrors.WithLabelValues(string(eventType)).Inc()
		logger.FromContext(ctx).Warn("Failed to publish object event", "type", eventType, "error", err)
	}
}

func (s *service) publishRunEvent(ctx context.Context, run *domain.SyncRun) {
	if s.bus == nil || run.Test {
		return
	}
	eventType := event.RunCompleted
	if run.Status == domain.RunStatusFailed {
		eventType = event.RunFailed
	}
	e := event.NewRunEvent(eventType, run.ID.String(), run.SynchronizationID.String(), string(run.Status))
	if err := s.bus.Publish(ctx, e); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish run event", "type", eventType, "error", err)
	}
}

func (s *service) recordMetrics(sync *domain.Synchronization, run *domain.SyncRun) {
	if run.Test {
		return
	}
	metrics.RunsTotal.WithLabelValues(sync.Name, string(run.Status)).Inc()
	metrics.RunDuration.WithLabelValues(sync.Name).Observe(run.ExecutionTime.Seconds())

	counters := map[domain.Outcome]int{
		domain.OutcomeCreate:  run.Counters.Created,
		domain.OutcomeUpdate:  run.Counters.Updated,
		domain.OutcomeDelete:  run.Counters.Deleted,
		domain.OutcomeSkip:    run.Counters.Skipped,
		domain.OutcomeInvalid: run.Counters.Invalid,
	}
	for outcome, count := range counters {
		if count > 0 {
			metrics.ObjectsTotal.WithLabelValues(sync.Name, string(outcome)).Add(float64(count))
		}
	}
}
