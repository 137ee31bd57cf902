// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package services

import (
	"context"
	"encoding/json"
	"errors"
	"go/parser"
	"go/token"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/internal/domain/entities"
	"github.com/cityevents/cityevents-api/internal/mocks"
	"github.com/cityevents/cityevents-api/pkg/constants"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

type stubShutdown struct {
	shuttingDown atomic.Bool
	status       entities.ShutdownStatus
}

func (s *stubShutdown) IsShuttingDown() bool            { return s.shuttingDown.Load() }
func (s *stubShutdown) Status() entities.ShutdownStatus { return s.status }

type stubMetrics struct {
	snapshot entities.MetricsSnapshot
	panics   bool
}

func (s *stubMetrics) GetMetrics() entities.MetricsSnapshot {
	if s.panics {
		panic("snapshot unavailable")
	}
	return s.snapshot
}

type stubProcess struct {
	memory entities.MemoryUsage
	err    error
}

func (s *stubProcess) ReadMemory() (entities.MemoryUsage, error) { return s.memory, s.err }
func (s *stubProcess) ReadCPU() (entities.CPUUsage, error)       { return entities.CPUUsage{}, nil }

func testHealthConfig() entities.HealthPolicy {
	return entities.HealthPolicy{
		Timeout:           time.Second,
		HeapCeilingMB:     1000,
		RSSHealthyMB:      constants.DefaultRSSHealthyMB,
		RSSDegradedMB:     constants.DefaultRSSDegradedMB,
		HeapHealthyRatio:  constants.DefaultHeapHealthyRatio,
		HeapDegradedRatio: constants.DefaultHeapDegradedRatio,
	}
}

// memory returns usage with the given resident size and heap share of a 1000 MB ceiling.
func memory(rssMB, heapPercent float64) entities.MemoryUsage {
	return entities.MemoryUsage{
		RSS:      uint64(rssMB * bytesPerMB),
		HeapUsed: uint64(heapPercent / 100 * 1000 * bytesPerMB),
		Source:   "procfs",
	}
}

type fixture struct {
	db       *mocks.MockDatabase
	shutdown *stubShutdown
	metrics  *stubMetrics
	process  *stubProcess
	service  *HealthService
}

func newFixture(t *testing.T, opts ...HealthOption) *fixture {
	logger, _ := logging.TestLogger(t)
	f := &fixture{
		db:       mocks.NewMockDatabase(),
		shutdown: &stubShutdown{},
		metrics:  &stubMetrics{},
		process:  &stubProcess{memory: memory(150, 30)},
	}
	opts = append([]HealthOption{WithMemoryLimit(func() int64 { return math.MaxInt64 })}, opts...)
	f.service = NewHealthService(HealthServiceDeps{
		Database: f.db,
		Shutdown: f.shutdown,
		Metrics:  f.metrics,
		Process:  f.process,
		Logger:   logger,
	}, testHealthConfig(), "test", "1.0.0", opts...)
	return f
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"no checks", nil, constants.StatusHealthy},
		{"all healthy", []string{"healthy", "healthy", "healthy"}, constants.StatusHealthy},
		{"memory degraded", []string{"healthy", "degraded", "healthy"}, constants.StatusDegraded},
		{"database unhealthy wins over degraded", []string{"unhealthy", "degraded", "healthy"}, constants.StatusUnhealthy},
		{"order does not matter", []string{"degraded", "healthy", "unhealthy"}, constants.StatusUnhealthy},
		{"unknown status", []string{"healthy", "bogus"}, constants.StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OverallStatus(tt.statuses...))
		})
	}
}

func TestClassifyMemory(t *testing.T) {
	cfg := testHealthConfig()
	tests := []struct {
		rssMB     float64
		heapRatio float64
		want      string
	}{
		{150, 0.30, constants.StatusHealthy},
		{300, 0.60, constants.StatusDegraded},
		{500, 0.90, constants.StatusUnhealthy},
		{150, 0.60, constants.StatusDegraded},
		{300, 0.10, constants.StatusDegraded},
		{150, 0.75, constants.StatusUnhealthy},
		{200, 0.10, constants.StatusDegraded},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyMemory(tt.rssMB, tt.heapRatio, cfg), "rss=%v heap=%v", tt.rssMB, tt.heapRatio)
	}
}

func TestGetHealthCheck_AllHealthy(t *testing.T) {
	f := newFixture(t)
	f.metrics.snapshot.Requests.Total = 7

	verdict := f.service.GetHealthCheck(context.Background())

	require.NotNil(t, verdict)
	assert.Equal(t, constants.StatusHealthy, verdict.Status)
	assert.Equal(t, "test", verdict.Environment)
	assert.Equal(t, "1.0.0", verdict.Version)
	assert.Equal(t, constants.StatusHealthy, verdict.Checks.Database.Status)
	assert.NotNil(t, verdict.Checks.Database.ResponseTimeMs)
	assert.Equal(t, constants.StatusHealthy, verdict.Checks.Memory.Status)
	assert.Equal(t, constants.StatusHealthy, verdict.Checks.Shutdown.Status)
	require.NotNil(t, verdict.Metrics)
	assert.Equal(t, uint64(7), verdict.Metrics.Requests.Total)
}

func TestGetHealthCheck_MemoryThresholds(t *testing.T) {
	tests := []struct {
		name  string
		usage entities.MemoryUsage
		want  string
	}{
		{"healthy", memory(150, 30), constants.StatusHealthy},
		{"degraded", memory(300, 60), constants.StatusDegraded},
		{"unhealthy", memory(500, 90), constants.StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.process.memory = tt.usage

			verdict := f.service.GetHealthCheck(context.Background())
			assert.Equal(t, tt.want, verdict.Checks.Memory.Status)
			assert.Equal(t, tt.want, verdict.Status)
			assert.Equal(t, "config", verdict.Checks.Memory.Details["ceilingSource"])
		})
	}
}

func TestGetHealthCheck_UsesGoMemoryLimitAsCeiling(t *testing.T) {
	f := newFixture(t, WithMemoryLimit(func() int64 { return 2000 * bytesPerMB }))
	// 600 MB heap is 60% of the configured ceiling but 30% of the runtime limit.
	f.process.memory = entities.MemoryUsage{RSS: 150 * bytesPerMB, HeapUsed: 600 * bytesPerMB}

	verdict := f.service.GetHealthCheck(context.Background())
	assert.Equal(t, constants.StatusHealthy, verdict.Checks.Memory.Status)
	assert.Equal(t, "memory_limit", verdict.Checks.Memory.Details["ceilingSource"])
	assert.Equal(t, 2000.0, verdict.Checks.Memory.Details["heapCeilingMB"])
}

func TestGetHealthCheck_DatabaseFailure(t *testing.T) {
	f := newFixture(t)
	f.db.SetPingError(&contracts.DBError{Kind: contracts.DBErrorConnection, Op: "ping", Err: errors.New("connection refused")})
	f.process.memory = memory(300, 60)

	verdict := f.service.GetHealthCheck(context.Background())

	assert.Equal(t, constants.StatusUnhealthy, verdict.Status)
	assert.Equal(t, constants.StatusUnhealthy, verdict.Checks.Database.Status)
	assert.Contains(t, verdict.Checks.Database.Message, "connection refused")
	assert.Equal(t, "connection", verdict.Checks.Database.Details["kind"])
	assert.Equal(t, constants.StatusDegraded, verdict.Checks.Memory.Status)
}

func TestGetHealthCheck_ShuttingDownIsDegraded(t *testing.T) {
	f := newFixture(t)
	f.shutdown.shuttingDown.Store(true)

	verdict := f.service.GetHealthCheck(context.Background())
	assert.Equal(t, constants.StatusDegraded, verdict.Checks.Shutdown.Status)
	assert.Equal(t, constants.StatusDegraded, verdict.Status)
}

func TestGetHealthCheck_ProbePanicIsContained(t *testing.T) {
	f := newFixture(t)
	f.db.PingPanic = "driver bug"

	verdict := f.service.GetHealthCheck(context.Background())
	assert.Equal(t, constants.StatusUnhealthy, verdict.Checks.Database.Status)
	assert.Contains(t, verdict.Checks.Database.Message, "driver bug")
	assert.Equal(t, constants.StatusHealthy, verdict.Checks.Memory.Status)
	assert.NotNil(t, verdict.Metrics)
}

func TestGetHealthCheck_AggregationFailureSynthesizesUnhealthy(t *testing.T) {
	f := newFixture(t)
	f.metrics.panics = true

	verdict := f.service.GetHealthCheck(context.Background())

	require.NotNil(t, verdict)
	assert.Equal(t, constants.StatusUnhealthy, verdict.Status)
	assert.Equal(t, constants.StatusUnhealthy, verdict.Checks.Database.Status)
	assert.Equal(t, constants.StatusUnhealthy, verdict.Checks.Memory.Status)
	assert.Equal(t, constants.StatusUnhealthy, verdict.Checks.Shutdown.Status)
	assert.Contains(t, verdict.Checks.Memory.Message, constants.ErrAggregation)
	assert.Nil(t, verdict.Metrics)
}

func TestGetHealthCheck_IsNeverCached(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, constants.StatusHealthy, f.service.GetHealthCheck(context.Background()).Status)
	f.db.SetPingError(errors.New("gone"))
	assert.Equal(t, constants.StatusUnhealthy, f.service.GetHealthCheck(context.Background()).Status)
	assert.Equal(t, 2, f.db.GetPingCalls())
}

func TestHealthVerdict_JSONFieldNames(t *testing.T) {
	f := newFixture(t)
	data, err := json.Marshal(f.service.GetHealthCheck(context.Background()))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{"status", "timestamp", "uptime", "environment", "version", "checks", "metrics"} {
		assert.Contains(t, decoded, key)
	}
	checks := decoded["checks"].(map[string]any)
	for _, key := range []string{"database", "memory", "shutdown"} {
		assert.Contains(t, checks, key)
	}
}

func TestGetReadinessCheck(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		f := newFixture(t)
		result := f.service.GetReadinessCheck(context.Background())
		assert.True(t, result.Ready)
		assert.True(t, result.Checks.Database)
		assert.True(t, result.Checks.NotShuttingDown)
	})

	t.Run("database failure fails closed", func(t *testing.T) {
		f := newFixture(t)
		f.db.SetPingError(errors.New("connection refused"))
		result := f.service.GetReadinessCheck(context.Background())
		assert.False(t, result.Ready)
		assert.False(t, result.Checks.Database)
		assert.True(t, result.Checks.NotShuttingDown)
	})

	t.Run("shutting down", func(t *testing.T) {
		f := newFixture(t)
		f.shutdown.shuttingDown.Store(true)
		result := f.service.GetReadinessCheck(context.Background())
		assert.False(t, result.Ready)
		assert.True(t, result.Checks.Database)
		assert.False(t, result.Checks.NotShuttingDown)
	})

	t.Run("panic fails closed", func(t *testing.T) {
		f := newFixture(t)
		f.db.PingPanic = "boom"
		result := f.service.GetReadinessCheck(context.Background())
		assert.False(t, result.Ready)
		assert.False(t, result.Checks.Database)
	})
}

func TestGetShutdownStatus(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	f := newFixture(t, WithHealthClock(clock))

	f.shutdown.shuttingDown.Store(true)
	f.shutdown.status = entities.ShutdownStatus{InProgress: true, Phase: entities.PhaseRunningCleanup, Signal: "SIGTERM"}
	now = now.Add(90 * time.Second)

	result := f.service.GetShutdownStatus()
	assert.True(t, result.IsShuttingDown)
	assert.Equal(t, 90.0, result.Uptime)
	assert.Equal(t, entities.PhaseRunningCleanup, result.GracefulShutdown.Phase)
	assert.Equal(t, "SIGTERM", result.GracefulShutdown.Signal)
}

func TestCheckLiveness(t *testing.T) {
	f := newFixture(t)
	f.db.SetPingError(errors.New("down"))

	result := f.service.CheckLiveness()
	assert.Equal(t, constants.StatusHealthy, result.Status)
	assert.Zero(t, f.db.GetPingCalls())
}

func TestGetHealthCheck_MissingProcessReader(t *testing.T) {
	logger, _ := logging.TestLogger(t)
	service := NewHealthService(HealthServiceDeps{
		Database: mocks.NewMockDatabase(),
		Shutdown: &stubShutdown{},
		Metrics:  &stubMetrics{},
		Logger:   logger,
	}, testHealthConfig(), "test", "1.0.0")

	verdict := service.GetHealthCheck(context.Background())
	assert.Equal(t, constants.StatusUnhealthy, verdict.Checks.Memory.Status)
	assert.Equal(t, constants.StatusUnhealthy, verdict.Status)
}

func TestDomainPackagesDoNotImportInfrastructure(t *testing.T) {
	dirs, err := filepath.Glob(filepath.Join("..", "*"))
	require.NoError(t, err)

	fset := token.NewFileSet()
	for _, dir := range dirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.go"))
		require.NoError(t, err)
		for _, file := range files {
			parsed, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
			require.NoError(t, err)
			for _, imp := range parsed.Imports {
				assert.NotContains(t, imp.Path.Value, "/internal/infrastructure/", file)
				assert.NotContains(t, imp.Path.Value, "/internal/presentation/", file)
			}
		}
	}
}
