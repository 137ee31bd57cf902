// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package contracts

import "github.com/cityevents/cityevents-api/internal/domain/entities"

// ProcessReader reads memory and CPU figures for the current process.
type ProcessReader interface {
	ReadMemory() (entities.MemoryUsage, error)
	ReadCPU() (entities.CPUUsage, error)
}

// MetricsSource provides the collector snapshot.
type MetricsSource interface {
	GetMetrics() entities.MetricsSnapshot
}
