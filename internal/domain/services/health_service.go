// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package services contains the domain services of the lifecycle core.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/internal/domain/entities"
	"github.com/cityevents/cityevents-api/pkg/constants"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

const bytesPerMB = 1024 * 1024

// CheckResult is the outcome of a single probe.
type CheckResult struct {
	Status         string         `json:"status"`
	Message        string         `json:"message"`
	ResponseTimeMs *float64       `json:"responseTimeMs,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

// HealthChecks holds one result per probe.
type HealthChecks struct {
	Database CheckResult `json:"database"`
	Memory   CheckResult `json:"memory"`
	Shutdown CheckResult `json:"shutdown"`
}

// HealthVerdict is the aggregated system health. It is rebuilt on every call.
type HealthVerdict struct {
	Status      string                    `json:"status"`
	Timestamp   time.Time                 `json:"timestamp"`
	Uptime      float64                   `json:"uptime"` // seconds
	Environment string                    `json:"environment"`
	Version     string                    `json:"version"`
	Checks      HealthChecks              `json:"checks"`
	Metrics     *entities.MetricsSnapshot `json:"metrics"`
}

// ReadinessChecks lists the individual readiness conditions.
type ReadinessChecks struct {
	Database        bool `json:"database"`
	NotShuttingDown bool `json:"notShuttingDown"`
}

// ReadinessResult reports whether the service should receive traffic.
type ReadinessResult struct {
	Ready  bool            `json:"ready"`
	Checks ReadinessChecks `json:"checks"`
}

// ShutdownStatusResult reports the shutdown flag without probing anything.
type ShutdownStatusResult struct {
	IsShuttingDown   bool                    `json:"isShuttingDown"`
	Uptime           float64                 `json:"uptime"`
	GracefulShutdown entities.ShutdownStatus `json:"gracefulShutdown"`
}

// HealthServiceDeps are the collaborators the health service reads from.
type HealthServiceDeps struct {
	Database contracts.Database
	Shutdown contracts.ShutdownReporter
	Metrics  contracts.MetricsSource
	Process  contracts.ProcessReader
	Logger   *slog.Logger
}

// HealthOption configures a HealthService.
type HealthOption func(*HealthService)

// WithHealthClock replaces time.Now.
func WithHealthClock(now func() time.Time) HealthOption {
	return func(s *HealthService) { s.now = now }
}

// WithMemoryLimit replaces the lookup of the Go soft memory limit.
func WithMemoryLimit(limit func() int64) HealthOption {
	return func(s *HealthService) { s.memoryLimit = limit }
}

// HealthService aggregates the database, memory and shutdown probes into one verdict
type HealthService struct {
	db          contracts.Database
	shutdown    contracts.ShutdownReporter
	metrics     contracts.MetricsSource
	process     contracts.ProcessReader
	logger      *slog.Logger
	cfg         entities.HealthPolicy
	environment string
	version     string

	now         func() time.Time
	memoryLimit func() int64
	startedAt   time.Time
}

// NewHealthService creates a health service. Uptime is measured from this call.
func NewHealthService(deps HealthServiceDeps, cfg entities.HealthPolicy, environment, version string, opts ...HealthOption) *HealthService {
	s := &HealthService{
		db:          deps.Database,
		shutdown:    deps.Shutdown,
		metrics:     deps.Metrics,
		process:     deps.Process,
		logger:      logging.WithComponent(deps.Logger, "health"),
		cfg:         cfg,
		environment: environment,
		version:     version,
		now:         time.Now,
		memoryLimit: func() int64 { return debug.SetMemoryLimit(-1) },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startedAt = s.now()
	return s
}

// GetHealthCheck runs all probes concurrently and folds them worst-wins.
// It never returns nil; a failure while assembling the verdict yields an
// all-unhealthy verdict instead.
func (s *HealthService) GetHealthCheck(ctx context.Context) (verdict *HealthVerdict) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s: %v", constants.ErrAggregation, r)
			logging.LogError(s.logger, constants.ErrAggregation, err)
			verdict = s.failedVerdict(err)
		}
	}()

	var checks HealthChecks
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checks.Database = s.safeProbe(constants.ComponentDatabase, func() CheckResult { return s.checkDatabase(gctx) })
		return nil
	})
	g.Go(func() error {
		checks.Memory = s.safeProbe(constants.ComponentMemory, s.checkMemory)
		return nil
	})
	g.Go(func() error {
		checks.Shutdown = s.safeProbe(constants.ComponentShutdown, s.checkShutdown)
		return nil
	})
	_ = g.Wait()

	snapshot := s.metrics.GetMetrics()
	return &HealthVerdict{
		Status:      OverallStatus(checks.Database.Status, checks.Memory.Status, checks.Shutdown.Status),
		Timestamp:   s.now(),
		Uptime:      s.uptime(),
		Environment: s.environment,
		Version:     s.version,
		Checks:      checks,
		Metrics:     &snapshot,
	}
}

// GetReadinessCheck reports ready iff the database answers and no shutdown
// is in progress. Any failure along the way reports not ready.
func (s *HealthService) GetReadinessCheck(ctx context.Context) (result *ReadinessResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Readiness check failed", "panic", r)
			result = &ReadinessResult{}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	dbOK := s.db != nil && s.db.Ping(ctx) == nil
	notShuttingDown := s.shutdown != nil && !s.shutdown.IsShuttingDown()

	return &ReadinessResult{
		Ready:  dbOK && notShuttingDown,
		Checks: ReadinessChecks{Database: dbOK, NotShuttingDown: notShuttingDown},
	}
}

// CheckLiveness reports that the process is serving. It touches no dependency.
func (s *HealthService) CheckLiveness() *CheckResult {
	return &CheckResult{
		Status:  constants.StatusHealthy,
		Message: "service is responsive",
		Details: map[string]any{"uptime": s.uptime(), "goroutines": runtime.NumGoroutine()},
	}
}

// GetShutdownStatus passes the orchestrator state through with the uptime.
func (s *HealthService) GetShutdownStatus() *ShutdownStatusResult {
	result := &ShutdownStatusResult{Uptime: s.uptime()}
	if s.shutdown != nil {
		result.IsShuttingDown = s.shutdown.IsShuttingDown()
		result.GracefulShutdown = s.shutdown.Status()
	}
	return result
}

// GetMetrics returns the collector snapshot.
func (s *HealthService) GetMetrics() entities.MetricsSnapshot {
	return s.metrics.GetMetrics()
}

func (s *HealthService) checkDatabase(ctx context.Context) CheckResult {
	if s.db == nil {
		return CheckResult{Status: constants.StatusUnhealthy, Message: "database not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := s.db.Ping(ctx)
	elapsed := round2(float64(time.Since(start)) / float64(time.Millisecond))

	if err != nil {
		s.logger.Warn(constants.ErrDatabasePing, "error", err.Error())
		return CheckResult{
			Status:         constants.StatusUnhealthy,
			Message:        err.Error(),
			ResponseTimeMs: &elapsed,
			Details:        map[string]any{"kind": string(contracts.DBErrorKindOf(err))},
		}
	}
	return CheckResult{
		Status:         constants.StatusHealthy,
		Message:        "database connection is healthy",
		ResponseTimeMs: &elapsed,
	}
}

func (s *HealthService) checkMemory() CheckResult {
	if s.process == nil {
		return CheckResult{Status: constants.StatusUnhealthy, Message: "memory reader not configured"}
	}
	usage, err := s.process.ReadMemory()
	if err != nil {
		return CheckResult{Status: constants.StatusUnhealthy, Message: fmt.Sprintf("memory read failed: %v", err)}
	}

	ceiling, ceilingSource := s.heapCeiling()
	rssMB := float64(usage.RSS) / bytesPerMB
	heapRatio := float64(usage.HeapUsed) / float64(ceiling)

	status := ClassifyMemory(rssMB, heapRatio, s.cfg)
	return CheckResult{
		Status:  status,
		Message: fmt.Sprintf("memory usage is %s", status),
		Details: map[string]any{
			"rssMB":         round2(rssMB),
			"heapUsedMB":    round2(float64(usage.HeapUsed) / bytesPerMB),
			"heapTotalMB":   round2(float64(usage.HeapTotal) / bytesPerMB),
			"heapCeilingMB": round2(float64(ceiling) / bytesPerMB),
			"heapPercent":   round2(heapRatio * 100),
			"ceilingSource": ceilingSource,
			"source":        usage.Source,
		},
	}
}

func (s *HealthService) checkShutdown() CheckResult {
	if s.shutdown != nil && s.shutdown.IsShuttingDown() {
		return CheckResult{Status: constants.StatusDegraded, Message: "shutdown in progress"}
	}
	return CheckResult{Status: constants.StatusHealthy, Message: "service is running"}
}

// heapCeiling prefers the Go soft memory limit over the configured ceiling.
func (s *HealthService) heapCeiling() (uint64, string) {
	if limit := s.memoryLimit(); limit > 0 && limit < math.MaxInt64 {
		return uint64(limit), "memory_limit"
	}
	return uint64(s.cfg.HeapCeilingMB) * bytesPerMB, "config"
}

func (s *HealthService) safeProbe(name string, probe func() CheckResult) (result CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Health probe panicked", "probe", name, "panic", r)
			result = CheckResult{Status: constants.StatusUnhealthy, Message: fmt.Sprintf("%s probe failed: %v", name, r)}
		}
	}()
	return probe()
}

func (s *HealthService) failedVerdict(err error) *HealthVerdict {
	failed := CheckResult{Status: constants.StatusUnhealthy, Message: err.Error()}
	return &HealthVerdict{
		Status:      constants.StatusUnhealthy,
		Timestamp:   s.now(),
		Uptime:      s.uptime(),
		Environment: s.environment,
		Version:     s.version,
		Checks:      HealthChecks{Database: failed, Memory: failed, Shutdown: failed},
	}
}

func (s *HealthService) uptime() float64 {
	return round2(s.now().Sub(s.startedAt).Seconds())
}

// ClassifyMemory applies the resident and heap-fraction thresholds.
func ClassifyMemory(rssMB, heapRatio float64, cfg entities.HealthPolicy) string {
	switch {
	case rssMB < float64(cfg.RSSHealthyMB) && heapRatio < cfg.HeapHealthyRatio:
		return constants.StatusHealthy
	case rssMB < float64(cfg.RSSDegradedMB) && heapRatio < cfg.HeapDegradedRatio:
		return constants.StatusDegraded
	default:
		return constants.StatusUnhealthy
	}
}

var severity = map[string]int{
	constants.StatusHealthy:   0,
	constants.StatusDegraded:  1,
	constants.StatusUnhealthy: 2,
}

// OverallStatus returns the most severe status. Unknown values count as unhealthy.
func OverallStatus(statuses ...string) string {
	overall := constants.StatusHealthy
	for _, st := range statuses {
		rank, ok := severity[st]
		if !ok {
			return constants.StatusUnhealthy
		}
		if rank > severity[overall] {
			overall = st
		}
	}
	return overall
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
