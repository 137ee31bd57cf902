// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package entities

import "time"

// HealthPolicy holds the probe timeout and the memory thresholds used to
// classify the process. A probe is healthy below both healthy limits and
// degraded below both degraded limits.
type HealthPolicy struct {
	Timeout           time.Duration
	HeapCeilingMB     int
	RSSHealthyMB      int
	RSSDegradedMB     int
	HeapHealthyRatio  float64
	HeapDegradedRatio float64
}
