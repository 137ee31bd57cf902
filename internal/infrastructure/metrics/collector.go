// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package metrics keeps bounded, in-memory request, error and performance
// statistics for the running process.
package metrics

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/internal/domain/entities"
	"github.com/cityevents/cityevents-api/pkg/constants"
)

// Option configures a Collector.
type Option func(*Collector)

// WithClock replaces time.Now for timestamps and rate computation.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithProcessReader replaces the procfs-backed process reader.
func WithProcessReader(r contracts.ProcessReader) Option {
	return func(c *Collector) { c.process = r }
}

// Collector is the process-wide metrics store. One instance is built at
// startup and shared by pointer; all methods are safe for concurrent use.
type Collector struct {
	mu        sync.Mutex
	now       func() time.Time
	process   contracts.ProcessReader
	startedAt time.Time

	requestTotal   uint64
	requestSuccess uint64
	requestError   uint64
	latencies      *ring[float64]

	errorTotal  uint64
	errorByType map[string]uint64
	errors      *ring[entities.ErrorRecord]

	lagSamples *ring[float64]
	sampling   atomic.Bool
	samplers   sync.WaitGroup
}

// NewCollector creates a collector whose rate baseline starts now.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		now:         time.Now,
		process:     NewProcfsReader(),
		latencies:   newRing[float64](constants.RequestSampleCapacity),
		errorByType: make(map[string]uint64),
		errors:      newRing[entities.ErrorRecord](constants.ErrorRecordCapacity),
		lagSamples:  newRing[float64](constants.PerformanceSampleCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startedAt = c.now()
	return c
}

// RecordRequest counts one request and retains its duration.
func (c *Collector) RecordRequest(durationMs float64, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestTotal++
	if success {
		c.requestSuccess++
	} else {
		c.requestError++
	}
	c.latencies.push(durationMs)
}

// RecordError counts one error occurrence and retains a timestamped record.
func (c *Collector) RecordError(errType, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errorTotal++
	c.errorByType[errType]++
	c.errors.push(entities.ErrorRecord{Timestamp: c.now(), Type: errType, Message: message})
}

// GetRequestMetrics derives rate and mean latency from the recorded requests.
func (c *Collector) GetRequestMetrics() entities.RequestMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sum float64
	c.latencies.each(func(v float64) { sum += v })

	var avg float64
	if n := c.latencies.len(); n > 0 {
		avg = sum / float64(n)
	}

	var rate float64
	if elapsed := c.now().Sub(c.startedAt).Seconds(); elapsed > 0 {
		rate = float64(c.requestTotal) / elapsed
	}

	return entities.RequestMetrics{
		Total:               c.requestTotal,
		Success:             c.requestSuccess,
		Error:               c.requestError,
		Rate:                round2(rate),
		AverageResponseTime: round2(avg),
		Samples:             c.latencies.len(),
	}
}

// GetErrorMetrics reports totals, the trailing-minute count over the retained
// records, and the newest records.
func (c *Collector) GetErrorMetrics() entities.ErrorMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-constants.ErrorRateWindow)
	recentCount := 0
	c.errors.each(func(r entities.ErrorRecord) {
		if r.Timestamp.After(cutoff) {
			recentCount++
		}
	})

	byType := make(map[string]uint64, len(c.errorByType))
	for k, v := range c.errorByType {
		byType[k] = v
	}

	return entities.ErrorMetrics{
		Total:  c.errorTotal,
		ByType: byType,
		Rate:   recentCount,
		Recent: c.errors.last(constants.RecentErrorLimit),
	}
}

// GetPerformanceMetrics returns CPU and memory figures read now and the mean
// of previously collected lag samples, then schedules a new lag sample. The
// first call returns a lag of 0.
func (c *Collector) GetPerformanceMetrics() entities.PerformanceMetrics {
	perf := entities.PerformanceMetrics{Goroutines: runtime.NumGoroutine()}

	if cpu, err := c.process.ReadCPU(); err == nil {
		perf.CPUUsage = cpu
	}
	if mem, err := c.process.ReadMemory(); err == nil {
		perf.MemoryUsage = mem
	}

	c.mu.Lock()
	var sum float64
	c.lagSamples.each(func(v float64) { sum += v })
	if n := c.lagSamples.len(); n > 0 {
		perf.SchedulingLag = round2(sum / float64(n))
		perf.LagSamples = n
	}
	c.mu.Unlock()

	c.scheduleLagSample()
	return perf
}

// GetMetrics returns requests, performance and errors together.
func (c *Collector) GetMetrics() entities.MetricsSnapshot {
	return entities.MetricsSnapshot{
		Requests:    c.GetRequestMetrics(),
		Performance: c.GetPerformanceMetrics(),
		Errors:      c.GetErrorMetrics(),
	}
}

// Reset clears all recorded data and restarts the rate baseline.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestTotal = 0
	c.requestSuccess = 0
	c.requestError = 0
	c.latencies.clear()

	c.errorTotal = 0
	c.errorByType = make(map[string]uint64)
	c.errors.clear()

	c.lagSamples.clear()
	c.startedAt = c.now()
}

// WaitForSamples blocks until in-flight lag samples have been recorded.
func (c *Collector) WaitForSamples() {
	c.samplers.Wait()
}

// scheduleLagSample starts a goroutine and records how long the scheduler took
// to run it. At most one sample is in flight at a time.
func (c *Collector) scheduleLagSample() {
	if !c.sampling.CompareAndSwap(false, true) {
		return
	}

	c.samplers.Add(1)
	scheduled := time.Now()
	go func() {
		defer c.samplers.Done()
		defer c.sampling.Store(false)

		lag := float64(time.Since(scheduled).Microseconds()) / 1000

		c.mu.Lock()
		c.lagSamples.push(lag)
		c.mu.Unlock()
	}()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
