package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies the result of reconciling one object
type Outcome string

const (
	OutcomeCreate  Outcome = "create"
	OutcomeUpdate  Outcome = "update"
	OutcomeDelete  Outcome = "delete"
	OutcomeSkip    Outcome = "skip"
	OutcomeInvalid Outcome = "invalid"
)

// RunStatus is the lifecycle state of a synchronization run
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusFailed      RunStatus = "failed"
	RunStatusRateLimited RunStatus = "rate_limited"
)

// RunCounters aggregates per-object outcomes over one run
type RunCounters struct {
	Found   int `json:"found"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
}

// Record increments the counter matching an outcome
func (c *RunCounters) Record(outcome Outcome) {
	switch outcome {
	case OutcomeCreate:
		c.Created++
	case OutcomeUpdate:
		c.Updated++
	case OutcomeDelete:
		c.Deleted++
	case OutcomeSkip:
		c.Skipped++
	case OutcomeInvalid:
		c.Invalid++
	}
}

// SyncRun is the log of one orchestrator run. It is created when the run
// starts and receives exactly one terminal update when the run finishes,
// successfully or not.
type SyncRun struct {
	ID                uuid.UUID `json:"id" db:"id"`
	SynchronizationID uuid.UUID `json:"synchronizationId" db:"synchronization_id"`

	Status   RunStatus   `json:"status" db:"status"`
	Message  string      `json:"message,omitempty" db:"message"`
	Counters RunCounters `json:"counters" db:"counters"`

	// StageTimings holds milliseconds spent per stage (fetch, reconcile, ...)
	StageTimings map[string]int64 `json:"stageTimings,omitempty" db:"stage_timings"`

	// ContractLogIDs lists the contract logs written during this run
	ContractLogIDs []uuid.UUID `json:"contractLogs,omitempty" db:"contract_logs"`

	Test  bool `json:"test" db:"test"`
	Force bool `json:"force" db:"force"`

	StartedAt     time.Time     `json:"startedAt" db:"started_at"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty" db:"completed_at"`
	ExecutionTime time.Duration `json:"executionTime" db:"execution_time"`
}

// ContractLog records one reconciliation attempt within a run, with the
// source and target snapshots for audit and debugging. Logs may expire and
// be purged.
type ContractLog struct {
	ID                uuid.UUID `json:"id" db:"id"`
	ContractID        uuid.UUID `json:"contractId" db:"contract_id"`
	RunID             uuid.UUID `json:"runId" db:"run_id"`
	SynchronizationID uuid.UUID `json:"synchronizationId" db:"synchronization_id"`

	Source  map[string]any `json:"source,omitempty" db:"source"`
	Target  map[string]any `json:"target,omitempty" db:"target"`
	Outcome Outcome        `json:"outcome" db:"outcome"`
	Message string         `json:"message,omitempty" db:"message"`

	ExpiresAt *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}
