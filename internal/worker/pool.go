// Package worker runs synchronization jobs in the background.
package worker

import (
	"context"
	"sync"

	"github.com/syncline/syncline/internal/logger"
)

// LogMsgWorkerJobFailed is logged when a worker fails to process a job
const LogMsgWorkerJobFailed = "Worker job failed"

// Job represents a task to be executed by a worker
type Job interface {
	Process(ctx context.Context) error
}

// Pool is a fixed-size worker pool consuming a bounded job queue
type Pool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	quit     chan struct{}
}

// NewPool creates a new worker pool
func NewPool(workers int, queueSize int) *Pool {
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, queueSize),
		quit:     make(chan struct{}),
	}
}

// Start starts the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobQueue:
			// Jobs outlive the request that enqueued them
			ctx := context.Background()
			if err := job.Process(ctx); err != nil {
				logger.FromContext(ctx).Error(LogMsgWorkerJobFailed, "error", err)
			}
		case <-p.quit:
			return
		}
	}
}

// TryEnqueue adds a job to the queue without blocking. It returns false
// when the queue is full.
func (p *Pool) TryEnqueue(job Job) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		return false
	}
}

// Stop stops the workers and waits for them to finish
func (p *Pool) Stop() {
	close(p.quit)
	p.wg.Wait()
}
