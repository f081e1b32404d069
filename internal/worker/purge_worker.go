package worker

import (
	"context"
	"sync"
	"time"

	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/repository"
)

// defaultPurgeInterval is how often expired contract logs are removed
const defaultPurgeInterval = time.Hour

// PurgeWorker periodically removes expired contract logs
type PurgeWorker struct {
	runs     repository.Run
	interval time.Duration
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewPurgeWorker creates a contract log purge worker. A non-positive
// interval falls back to the default.
func NewPurgeWorker(runs repository.Run, interval time.Duration) *PurgeWorker {
	if interval <= 0 {
		interval = defaultPurgeInterval
	}
	return &PurgeWorker{
		runs:     runs,
		interval: interval,
		shutdown: make(chan struct{}),
	}
}

// Start begins the periodic purge loop
func (w *PurgeWorker) Start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *PurgeWorker) loop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.purge()
		case <-w.shutdown:
			return
		}
	}
}

func (w *PurgeWorker) purge() {
	ctx := context.Background()
	log := logger.FromContext(ctx)

	purged, err := w.runs.PurgeExpiredContractLogs(ctx, time.Now())
	if err != nil {
		log.Error("Failed to purge expired contract logs", "error", err)
		return
	}
	if purged > 0 {
		log.Info("Purged expired contract logs", "count", purged)
	}
}

// Stop stops the purge loop and waits for an in-flight purge
func (w *PurgeWorker) Stop() {
	close(w.shutdown)
	w.wg.Wait()
}
