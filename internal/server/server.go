// Package server wires the HTTP surface of the synchronization engine.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syncline/syncline/internal/database"
	"github.com/syncline/syncline/internal/event"
	"github.com/syncline/syncline/internal/handler"
	"github.com/syncline/syncline/internal/mapping"
	"github.com/syncline/syncline/internal/metrics"
	"github.com/syncline/syncline/internal/objectstore"
	"github.com/syncline/syncline/internal/orchestrator"
	"github.com/syncline/syncline/internal/repository"
	"github.com/syncline/syncline/internal/worker"
)

// Dependencies collects everything the HTTP surface needs
type Dependencies struct {
	DBPool          database.Pool
	Sources         repository.Source
	Synchronization repository.Synchronization
	Contracts       repository.Contract
	Runs            repository.Run
	Mappings        repository.Mapping
	Rules           repository.Rule
	Objects         objectstore.Store
	Engine          *mapping.Engine
	Orchestrator    orchestrator.Service
	Pool            *worker.Pool
	Bus             event.Bus
}

type Server struct {
	httpServer *http.Server
}

// NewServer creates a new Server instance
func NewServer(port int, apiKey string, deps Dependencies) *Server {
	r := chi.NewRouter()

	// Chi middleware executes in order defined (outermost to innermost)
	r.Use(AuthMiddleware(apiKey))
	r.Use(RequestSizeLimitMiddleware(1 << 20)) // 1MB limit
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware)

	// Health check routes (unversioned)
	r.Get("/healthz", handler.HandleHealthz())
	r.Get("/readyz", handler.HandleReadyz(deps.DBPool))

	// Version endpoint (public, for deployment verification)
	r.Get("/version", handler.HandleVersion())

	// Metrics endpoint (public, for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	syncHandlers := handler.NewSynchronizationHandlers(deps.Synchronization, deps.Contracts, deps.Runs, deps.Orchestrator, deps.Pool)
	runHandlers := handler.NewRunHandlers(deps.Runs)
	sourceHandlers := handler.NewSourceHandlers(deps.Sources)
	mappingHandlers := handler.NewMappingHandlers(deps.Mappings, deps.Engine)
	ruleHandlers := handler.NewRuleHandlers(deps.Rules)
	objectHandlers := handler.NewObjectHandlers(deps.Objects, deps.Bus)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/synchronizations", func(r chi.Router) {
			r.Get("/", syncHandlers.HandleList)
			r.Post("/", syncHandlers.HandleCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", syncHandlers.HandleGet)
				r.Put("/", syncHandlers.HandleUpdate)
				r.Delete("/", syncHandlers.HandleDelete)
				r.Post("/run", syncHandlers.HandleRun)
				r.Get("/runs", syncHandlers.HandleListRuns)
				r.Get("/contracts", syncHandlers.HandleListContracts)
			})
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/{id}", runHandlers.HandleGet)
			r.Get("/{id}/logs", runHandlers.HandleListContractLogs)
		})

		r.Route("/sources", func(r chi.Router) {
			r.Get("/", sourceHandlers.HandleList)
			r.Post("/", sourceHandlers.HandleCreate)
			r.Get("/{id}", sourceHandlers.HandleGet)
			r.Put("/{id}", sourceHandlers.HandleUpdate)
			r.Delete("/{id}", sourceHandlers.HandleDelete)
		})

		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", mappingHandlers.HandleList)
			r.Post("/", mappingHandlers.HandleCreate)
			r.Get("/{id}", mappingHandlers.HandleGet)
			r.Put("/{id}", mappingHandlers.HandleUpdate)
			r.Delete("/{id}", mappingHandlers.HandleDelete)
			r.Post("/{id}/test", mappingHandlers.HandleTest)
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", ruleHandlers.HandleList)
			r.Post("/", ruleHandlers.HandleCreate)
			r.Get("/{id}", ruleHandlers.HandleGet)
			r.Put("/{id}", ruleHandlers.HandleUpdate)
			r.Delete("/{id}", ruleHandlers.HandleDelete)
		})

		r.Route("/registers/{register}/{schema}/objects", func(r chi.Router) {
			r.Get("/", objectHandlers.HandleList)
			r.Post("/", objectHandlers.HandleSave)
			r.Get("/{id}", objectHandlers.HandleGet)
			r.Put("/{id}", objectHandlers.HandleSave)
			r.Delete("/{id}", objectHandlers.HandleDelete)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Default().Info(LogMsgServerStarting, "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
