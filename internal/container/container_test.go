// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package container

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityevents/cityevents-api/internal/domain/entities"
	"github.com/cityevents/cityevents-api/internal/infrastructure/config"
	"github.com/cityevents/cityevents-api/internal/mocks"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

type idleProcess struct{}

func (idleProcess) ReadMemory() (entities.MemoryUsage, error) {
	return entities.MemoryUsage{RSS: 50 * 1024 * 1024, HeapUsed: 10 * 1024 * 1024}, nil
}
func (idleProcess) ReadCPU() (entities.CPUUsage, error) { return entities.CPUUsage{}, nil }

func newTestContainer(t *testing.T, withPublisher bool) (*Container, *mocks.MockDatabase, *mocks.MockLifecyclePublisher, *logging.SafeBuffer) {
	t.Helper()
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	logger, buf := logging.TestLogger(t)
	db := mocks.NewMockDatabase()
	deps := Dependencies{Database: db, Process: idleProcess{}}

	var publisher *mocks.MockLifecyclePublisher
	if withPublisher {
		publisher = mocks.NewMockLifecyclePublisher()
		deps.Publisher = publisher
	}
	return New(cfg, logger, deps), db, publisher, buf
}

func waitShutdown(t *testing.T, c *Container, signal string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Orchestrator.InitiateShutdown(signal).Wait(ctx))
}

func TestNew_RegistersCleanupTasksInOrder(t *testing.T) {
	c, _, _, _ := newTestContainer(t, true)
	c.RegisterHTTPServer(&http.Server{})

	assert.Equal(t, []string{"http-server", "lifecycle-notice", "metrics-flush", "nats-drain"}, c.Orchestrator.RegisteredTasks())
}

func TestNew_DefaultShutdownTimeoutCoversWorstCase(t *testing.T) {
	c, _, _, _ := newTestContainer(t, true)
	c.RegisterHTTPServer(&http.Server{})

	// 10s http-server + 10s lifecycle-notice + 10s metrics-flush + 5s nats-drain + 5s disconnect
	assert.Equal(t, 40*time.Second, c.Orchestrator.WorstCaseDuration())
	assert.GreaterOrEqual(t, c.Config.Shutdown.Timeout, c.Orchestrator.WorstCaseDuration())
}

func TestNew_WithoutPublisher(t *testing.T) {
	c, _, _, _ := newTestContainer(t, false)
	assert.Equal(t, []string{"metrics-flush"}, c.Orchestrator.RegisteredTasks())
}

func TestShutdown_RunsContainerTasks(t *testing.T) {
	c, db, publisher, buf := newTestContainer(t, true)
	c.Collector.RecordRequest(5, true)

	waitShutdown(t, c, "SIGTERM")

	events := publisher.GetPublished()
	require.Len(t, events, 1)
	assert.Equal(t, "shutdown", events[0].Event)
	assert.Equal(t, "SIGTERM", events[0].Signal)
	assert.Equal(t, 1, publisher.GetDrainCalls())
	assert.Equal(t, 1, db.GetDisconnectCalls())
	logging.AssertLogContains(t, buf, "Final metrics")
}

func TestShutdown_PublishFailureDoesNotStopDrain(t *testing.T) {
	c, db, publisher, _ := newTestContainer(t, true)
	publisher.PublishError = errors.New("no responders")

	waitShutdown(t, c, "SIGINT")

	assert.Equal(t, 1, publisher.GetDrainCalls())
	assert.Equal(t, 1, db.GetDisconnectCalls())
}

func TestStart(t *testing.T) {
	c, db, publisher, _ := newTestContainer(t, true)

	require.NoError(t, c.Start(context.Background()))
	events := publisher.GetPublished()
	require.Len(t, events, 1)
	assert.Equal(t, "started", events[0].Event)

	db.SetPingError(errors.New("connection refused"))
	assert.ErrorContains(t, c.Start(context.Background()), "connection refused")
}

func TestRouter_ServesProbesAndMetrics(t *testing.T) {
	c, _, _, _ := newTestContainer(t, false)

	for path, want := range map[string]int{
		"/health":             http.StatusOK,
		"/health/ready":       http.StatusOK,
		"/health/live":        http.StatusOK,
		"/health/shutdown":    http.StatusOK,
		"/metrics":            http.StatusOK,
		"/metrics/prometheus": http.StatusOK,
		"/cities":             http.StatusOK,
	} {
		w := httptest.NewRecorder()
		c.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Code, path)
	}

	w := httptest.NewRecorder()
	c.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))
	assert.Contains(t, w.Body.String(), "cityevents_requests_total")
}

func TestRouter_ReadinessFailsAfterShutdown(t *testing.T) {
	c, _, _, _ := newTestContainer(t, false)
	waitShutdown(t, c, "test")

	w := httptest.NewRecorder()
	c.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
