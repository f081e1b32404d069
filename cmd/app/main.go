package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/syncline/syncline/internal/config"
	"github.com/syncline/syncline/internal/database"
	"github.com/syncline/syncline/internal/database/postgres"
	"github.com/syncline/syncline/internal/event"
	"github.com/syncline/syncline/internal/fetcher"
	"github.com/syncline/syncline/internal/filestore"
	"github.com/syncline/syncline/internal/httpcall"
	"github.com/syncline/syncline/internal/mapping"
	"github.com/syncline/syncline/internal/orchestrator"
	"github.com/syncline/syncline/internal/reconciler"
	"github.com/syncline/syncline/internal/rules"
	"github.com/syncline/syncline/internal/server"
	"github.com/syncline/syncline/internal/worker"
	"github.com/syncline/syncline/internal/writer"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	initLogger(cfg)

	connString := cfg.GetDBConnString()
	if err := database.Migrate(connString); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	dbPool, err := database.NewPool(connString, cfg.DBMaxConns, cfg.DBMaxConnIdleTime, cfg.DBMaxConnLifetime)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbPool.Close()

	// Repositories
	sources := postgres.NewSourceRepository(dbPool)
	syncs := postgres.NewSynchronizationRepository(dbPool)
	contracts := postgres.NewContractRepository(dbPool)
	runs := postgres.NewRunRepository(dbPool)
	mappings := postgres.NewMappingRepository(dbPool)
	ruleRepo := postgres.NewRuleRepository(dbPool)
	objects := postgres.NewObjectRepository(dbPool)

	// Engine services
	call, err := httpcall.NewService(cfg.HTTPTimeout)
	if err != nil {
		log.Fatalf("Failed to create HTTP call service: %v", err)
	}
	files := filestore.NewDiskService(cfg.FileStoreDir)
	engine := mapping.NewEngine()
	bus := event.NewMemoryBus()

	fetch := fetcher.NewFetcher(call, sources, syncs, objects)
	pipeline := rules.NewPipeline(ruleRepo, mappings, objects, files, call)
	write := writer.NewWriter(call, sources, mappings, objects)
	reconcile := reconciler.NewReconciler(contracts, runs, mappings, pipeline, write)
	orch := orchestrator.NewService(syncs, contracts, runs, fetch, reconcile, pipeline, bus)

	// Background workers
	pool := worker.NewPool(cfg.Workers, cfg.QueueSize)
	pool.Start()
	defer pool.Stop()

	purge := worker.NewPurgeWorker(runs, 0)
	purge.Start()
	defer purge.Stop()

	srv := server.NewServer(cfg.Port, cfg.APIKey, server.Dependencies{
		DBPool:          dbPool,
		Sources:         sources,
		Synchronization: syncs,
		Contracts:       contracts,
		Runs:            runs,
		Mappings:        mappings,
		Rules:           ruleRepo,
		Objects:         objects,
		Engine:          engine,
		Orchestrator:    orch,
		Pool:            pool,
		Bus:             bus,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case sig := <-stop:
		slog.Default().Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		slog.Default().Error("Graceful shutdown failed", "error", err)
	}
}
