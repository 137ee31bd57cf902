// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Rolling buffer capacities
const (
	RequestSampleCapacity     = 1000
	ErrorRecordCapacity       = 100
	PerformanceSampleCapacity = 100
	RecentErrorLimit          = 10
)

// ErrorRateWindow is the trailing window used to compute the error rate.
const ErrorRateWindow = 60 * time.Second

// Prometheus namespace
const MetricsNamespace = "cityevents"
