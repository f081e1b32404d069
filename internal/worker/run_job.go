package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/orchestrator"
)

// RunJob executes one synchronization run on the pool
type RunJob struct {
	Orchestrator      orchestrator.Service
	SynchronizationID uuid.UUID
	Options           orchestrator.RunOptions
}

// Process runs the synchronization. An already running synchronization is
// not an error; the in-flight run covers this request.
func (j RunJob) Process(ctx context.Context) error {
	_, err := j.Orchestrator.Run(ctx, j.SynchronizationID, j.Options)
	if errors.Is(err, domain.ErrRunInProgress) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run of synchronization %s failed: %w", j.SynchronizationID, err)
	}
	return nil
}
