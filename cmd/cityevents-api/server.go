// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cityevents/cityevents-api/internal/container"
	"github.com/cityevents/cityevents-api/internal/infrastructure/config"
	"github.com/cityevents/cityevents-api/internal/infrastructure/shutdown"
	"github.com/cityevents/cityevents-api/pkg/constants"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

// runServer starts the API and blocks until the shutdown sequence finishes.
func runServer(flags *config.CLIConfig) error {
	c, err := container.NewContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	logger := c.Logger

	logger.Info("Configuration loaded",
		"environment", c.Config.Environment,
		"version", c.Config.Version,
		"addr", c.Config.Server.Address(),
		"database", c.Config.Database.Type,
		"nats_enabled", c.Publisher != nil)

	startCtx, cancel := context.WithTimeout(context.Background(), c.Config.Health.Timeout)
	err = c.Start(startCtx)
	cancel()
	if err != nil {
		logging.LogError(logger, "Startup check failed", err)
		_ = waitForShutdown(c, c.Orchestrator.InitiateShutdown("startup_failure"), nil)
		return err
	}

	server := createHTTPServer(c)
	c.RegisterHTTPServer(server)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("cityevents-api started successfully")

	var reason string
	select {
	case sig := <-sigChan:
		reason = signalName(sig)
		logger.Info("Shutdown signal received", "signal", reason)
	case err := <-serverErr:
		logging.LogError(logger, "HTTP server error", err)
		reason = "server_error"
	}

	return waitForShutdown(c, c.Orchestrator.InitiateShutdown(reason), sigChan)
}

// waitForShutdown waits for the orchestrator, bounded by the shutdown budget.
// Repeated signals are forwarded and join the running sequence.
func waitForShutdown(c *container.Container, s *shutdown.Shutdown, sigChan <-chan os.Signal) error {
	budget := shutdownBudget(c.Config.Shutdown.Timeout, c.Orchestrator.WorstCaseDuration())
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	for {
		select {
		case sig := <-sigChan:
			c.Logger.Warn("Shutdown already in progress", "signal", signalName(sig))
			c.Orchestrator.InitiateShutdown(signalName(sig))
		case <-s.Done():
			if err := s.Err(); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			c.Logger.Info("cityevents-api stopped")
			return nil
		case <-ctx.Done():
			c.Logger.Error(constants.ErrShutdownTimeout, "timeout", budget.String())
			return errors.New(constants.ErrShutdownTimeout)
		}
	}
}

// shutdownBudget never gives up before the orchestrator could have reached
// the database disconnect.
func shutdownBudget(configured, worstCase time.Duration) time.Duration {
	if worstCase > configured {
		return worstCase + time.Second
	}
	return configured
}

// createHTTPServer creates the HTTP server around the container router
func createHTTPServer(c *container.Container) *http.Server {
	// Wrap the handler with OpenTelemetry instrumentation
	handler := otelhttp.NewHandler(c.Router, constants.ServiceName)

	return &http.Server{
		Addr:              c.Config.Server.Address(),
		Handler:           handler,
		ReadTimeout:       c.Config.Server.ReadTimeout,
		WriteTimeout:      c.Config.Server.WriteTimeout,
		ReadHeaderTimeout: 3 * time.Second, // Security: prevent slowloris attacks
	}
}

func signalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case syscall.SIGINT:
		return "SIGINT"
	default:
		return sig.String()
	}
}
