// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package contracts defines the collaborator interfaces and value types shared by the domain layer.
package contracts

import (
	"context"
	"time"

	"github.com/cityevents/cityevents-api/internal/domain/entities"
)

// CleanupFunc performs one unit of shutdown work. The context expires at the
// task's timeout; implementations should return once it is done.
type CleanupFunc func(ctx context.Context) error

// CleanupTask is a named, prioritized, timeout-bounded unit of shutdown work.
// Higher Priority runs first.
type CleanupTask struct {
	Name     string
	Priority int
	Timeout  time.Duration
	Run      CleanupFunc
}

// ShutdownState exposes the in-progress flag to readers such as health checks.
type ShutdownState interface {
	IsShuttingDown() bool
}

// ShutdownReporter is the read side of the shutdown orchestrator.
type ShutdownReporter interface {
	ShutdownState
	Status() entities.ShutdownStatus
}
