// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package container wires the application's dependencies together.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/internal/domain/services"
	"github.com/cityevents/cityevents-api/internal/infrastructure/config"
	"github.com/cityevents/cityevents-api/internal/infrastructure/messaging"
	"github.com/cityevents/cityevents-api/internal/infrastructure/metrics"
	"github.com/cityevents/cityevents-api/internal/infrastructure/shutdown"
	"github.com/cityevents/cityevents-api/internal/infrastructure/storage"
	"github.com/cityevents/cityevents-api/internal/presentation/handlers"
	"github.com/cityevents/cityevents-api/pkg/constants"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

// Dependencies are the external collaborators. Publisher may be nil.
type Dependencies struct {
	Database  contracts.CatalogRepository
	Publisher contracts.LifecyclePublisher
	Process   contracts.ProcessReader
}

// Container holds all dependencies
type Container struct {
	// Configuration
	Config *config.AppConfig
	Logger *slog.Logger

	// Infrastructure
	Database     contracts.CatalogRepository
	Publisher    contracts.LifecyclePublisher
	Collector    *metrics.Collector
	Orchestrator *shutdown.Orchestrator
	Registry     *prometheus.Registry

	// Services
	HealthService *services.HealthService

	// Handlers
	HealthHandler  *handlers.HealthHandler
	MetricsHandler *handlers.MetricsHandler
	CatalogHandler *handlers.CatalogHandler
	Router         http.Handler
}

// NewContainer loads and validates configuration, connects to the database
// and, when configured, to NATS, then wires everything together.
func NewContainer(cli *config.CLIConfig) (*Container, error) {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyCLI(cli)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(logging.Options{
		Debug:  cfg.Logging.Debug,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stdout,
	})

	deps, err := initializeInfrastructure(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	return New(cfg, logger, deps), nil
}

// initializeInfrastructure opens the database and the optional NATS connection
func initializeInfrastructure(cfg *config.AppConfig, logger *slog.Logger) (Dependencies, error) {
	db, err := storage.Open(cfg.Database, logger)
	if err != nil {
		return Dependencies{}, err
	}
	deps := Dependencies{Database: db, Process: metrics.NewProcfsReader()}

	if cfg.NATS.URL == "" {
		logger.Info("NATS_URL not set, lifecycle events disabled")
		return deps, nil
	}

	publisher, err := messaging.Connect(cfg.NATS, logger)
	if err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseCloseTimeout)
		defer cancel()
		_ = db.Disconnect(ctx)
		return Dependencies{}, err
	}
	deps.Publisher = publisher
	logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	return deps, nil
}

// New wires a container around already constructed collaborators.
func New(cfg *config.AppConfig, logger *slog.Logger, deps Dependencies) *Container {
	if deps.Process == nil {
		deps.Process = metrics.NewProcfsReader()
	}
	c := &Container{
		Config:    cfg,
		Logger:    logger,
		Database:  deps.Database,
		Publisher: deps.Publisher,
	}

	c.initializeInfrastructure(deps)
	c.initializeServices(deps)
	c.initializeHandlers()
	c.registerCleanupTasks()

	return c
}

func (c *Container) initializeInfrastructure(deps Dependencies) {
	c.Collector = metrics.NewCollector(metrics.WithProcessReader(deps.Process))

	c.Orchestrator = shutdown.New(c.Database, c.Logger,
		shutdown.WithDefaultTaskTimeout(c.Config.Shutdown.TaskTimeout),
		shutdown.WithDisconnectTimeout(constants.DatabaseCloseTimeout),
	)

	c.Registry = metrics.NewRegistry(metrics.NewPrometheusExporter(c.Collector, c.Orchestrator))
}

func (c *Container) initializeServices(deps Dependencies) {
	c.HealthService = services.NewHealthService(services.HealthServiceDeps{
		Database: c.Database,
		Shutdown: c.Orchestrator,
		Metrics:  c.Collector,
		Process:  deps.Process,
		Logger:   c.Logger,
	}, c.Config.Health.Policy(), c.Config.Environment, c.Config.Version)
}

func (c *Container) initializeHandlers() {
	c.HealthHandler = handlers.NewHealthHandler(c.HealthService)
	c.MetricsHandler = handlers.NewMetricsHandler(c.Collector, metrics.Handler(c.Registry))
	c.CatalogHandler = handlers.NewCatalogHandler(c.Database, c.Logger)
	c.Router = handlers.NewRouter(c.Collector, c.Logger, c.HealthHandler, c.MetricsHandler, c.CatalogHandler)
}

// registerCleanupTasks registers the shutdown work owned by the container
func (c *Container) registerCleanupTasks() {
	if c.Publisher != nil {
		c.Orchestrator.RegisterCleanupTask(contracts.CleanupTask{
			Name:     "lifecycle-notice",
			Priority: constants.PriorityLifecycleNotice,
			Run:      c.announceShutdown,
		})
	}

	c.Orchestrator.RegisterCleanupTask(contracts.CleanupTask{
		Name:     "metrics-flush",
		Priority: constants.PriorityMetricsFlush,
		Run:      c.flushMetrics,
	})

	if c.Publisher != nil {
		c.Orchestrator.RegisterCleanupTask(contracts.CleanupTask{
			Name:     "nats-drain",
			Priority: constants.PriorityMessagingDrain,
			Timeout:  c.Config.NATS.DrainTimeout,
			Run:      c.Publisher.Drain,
		})
	}
}

// RegisterHTTPServer makes the server stop accepting requests before any
// other cleanup work runs.
func (c *Container) RegisterHTTPServer(srv *http.Server) {
	c.Orchestrator.RegisterCleanupTask(contracts.CleanupTask{
		Name:     "http-server",
		Priority: constants.PriorityHTTPServer,
		Run:      srv.Shutdown,
	})
}

// Start verifies the database and announces startup. Only the database
// check is fatal.
func (c *Container) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pingCtx, cancel := context.WithTimeout(gctx, c.Config.Health.Timeout)
		defer cancel()
		if err := c.Database.Ping(pingCtx); err != nil {
			return fmt.Errorf("%s: %w", constants.ErrDatabasePing, err)
		}
		return nil
	})

	if c.Publisher != nil {
		g.Go(func() error {
			if err := c.Publisher.PublishLifecycle(gctx, c.lifecycleEvent("started", "")); err != nil {
				logging.LogError(c.Logger, "Failed to announce startup", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (c *Container) announceShutdown(ctx context.Context) error {
	return c.Publisher.PublishLifecycle(ctx, c.lifecycleEvent("shutdown", c.Orchestrator.Status().Signal))
}

func (c *Container) flushMetrics(context.Context) error {
	snap := c.Collector.GetMetrics()
	c.Logger.Info("Final metrics",
		"requests_total", snap.Requests.Total,
		"requests_error", snap.Requests.Error,
		"average_response_ms", snap.Requests.AverageResponseTime,
		"errors_total", snap.Errors.Total,
		"errors_by_type", snap.Errors.ByType,
	)
	return nil
}

func (c *Container) lifecycleEvent(event, signal string) contracts.LifecycleEvent {
	return contracts.LifecycleEvent{
		Service:   constants.ServiceName,
		Version:   c.Config.Version,
		Event:     event,
		Signal:    signal,
		Timestamp: time.Now().UTC(),
	}
}
