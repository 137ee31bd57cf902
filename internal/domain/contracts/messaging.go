// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package contracts

import (
	"context"
	"time"
)

// LifecycleEvent is published when the service changes lifecycle state.
type LifecycleEvent struct {
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Event     string    `json:"event"`
	Signal    string    `json:"signal,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LifecyclePublisher announces lifecycle events to other services
type LifecyclePublisher interface {
	// PublishLifecycle publishes a lifecycle event
	PublishLifecycle(ctx context.Context, event LifecycleEvent) error

	// Drain flushes pending messages and closes the connection
	Drain(ctx context.Context) error
}
