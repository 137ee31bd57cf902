// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package entities

import "time"

// MemoryUsage is a point-in-time view of process memory, in bytes.
type MemoryUsage struct {
	RSS       uint64 `json:"rss"`
	HeapTotal uint64 `json:"heapTotal"`
	HeapUsed  uint64 `json:"heapUsed"`
	External  uint64 `json:"external"` // runtime memory outside the heap (stacks, GC metadata)
	Source    string `json:"source"`   // "procfs" or "runtime" when RSS is estimated
}

// CPUUsage reports cumulative process CPU time in microseconds.
type CPUUsage struct {
	User      uint64 `json:"user"`
	System    uint64 `json:"system"`
	Available bool   `json:"available"`
}

// ErrorRecord is one buffered error occurrence.
type ErrorRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
}

// RequestMetrics summarizes recorded requests.
type RequestMetrics struct {
	Total               uint64  `json:"total"`
	Success             uint64  `json:"success"`
	Error               uint64  `json:"error"`
	Rate                float64 `json:"rate"`                // requests per second since start
	AverageResponseTime float64 `json:"averageResponseTime"` // ms, over the retained samples
	Samples             int     `json:"samples"`
}

// ErrorMetrics summarizes recorded errors.
type ErrorMetrics struct {
	Total  uint64            `json:"total"`
	ByType map[string]uint64 `json:"byType"`
	Rate   int               `json:"rate"` // buffered errors within the trailing window
	Recent []ErrorRecord     `json:"recent"`
}

// PerformanceMetrics reports process resource usage.
type PerformanceMetrics struct {
	CPUUsage    CPUUsage    `json:"cpuUsage"`
	MemoryUsage MemoryUsage `json:"memoryUsage"`
	// SchedulingLag is the mean delay, in ms, between scheduling a goroutine
	// and it starting to run, over the retained samples.
	SchedulingLag float64 `json:"eventLoopLag"`
	LagSamples    int     `json:"lagSamples"`
	Goroutines    int     `json:"goroutines"`
}

// MetricsSnapshot is the combined view served by the metrics endpoint.
type MetricsSnapshot struct {
	Requests    RequestMetrics     `json:"requests"`
	Performance PerformanceMetrics `json:"performance"`
	Errors      ErrorMetrics       `json:"errors"`
}
