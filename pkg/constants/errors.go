// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

// Error messages
const (
	ErrShutdownTimeout = "shutdown timeout exceeded"
	ErrDatabasePing    = "database ping failed"
	ErrDatabaseClose   = "database disconnect failed"
	ErrCleanupTask     = "cleanup task failed"
	ErrCleanupTimeout  = "cleanup task timed out"
	ErrAggregation     = "health aggregation failed"
)
