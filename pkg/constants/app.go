// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package constants holds service-wide names, defaults and limits.
package constants

import "time"

// Service identity
const (
	ServiceName    = "cityevents-api"
	ServiceVersion = "1.4.0"
)

// Default configuration values
const (
	DefaultPort        = 3000
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultBindAddress = "*"
	DefaultEnvironment = "development"
	DefaultDBType      = "sqlite"
	DefaultSQLitePath  = "cityevents.db"
)

// Shutdown defaults
const (
	ShutdownTimeout      = 45 * time.Second // Minimum time main waits for the orchestrator
	CleanupTaskTimeout   = 10 * time.Second // Default per-task timeout
	DatabaseCloseTimeout = 5 * time.Second
	NATSDrainTimeout     = 5 * time.Second
)

// Cleanup task priorities (higher runs first)
const (
	PriorityHTTPServer      = 1000
	PriorityLifecycleNotice = 100
	PriorityMetricsFlush    = 50
	PriorityMessagingDrain  = 10
)
