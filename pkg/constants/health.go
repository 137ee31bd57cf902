// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Health check statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Health components
const (
	ComponentDatabase = "database"
	ComponentMemory   = "memory"
	ComponentShutdown = "shutdown"
)

// Health and metrics endpoints
const (
	HealthPath         = "/health"
	ReadinessPath      = "/health/ready"
	LivenessPath       = "/health/live"
	ShutdownStatusPath = "/health/shutdown"
	MetricsPath        = "/metrics"
	PrometheusPath     = "/metrics/prometheus"
)

// Health timeouts
const (
	HealthCheckTimeout = 5 * time.Second
)

// Memory probe defaults. The heap ceiling is a guess at the runtime heap limit
// and is only used when no Go soft memory limit is configured.
const (
	DefaultHeapCeilingMB     = 1400
	DefaultRSSHealthyMB      = 200
	DefaultRSSDegradedMB     = 400
	DefaultHeapHealthyRatio  = 0.5
	DefaultHeapDegradedRatio = 0.7
)
