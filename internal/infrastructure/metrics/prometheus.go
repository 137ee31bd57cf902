// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/pkg/constants"
)

// PrometheusExporter exposes a Collector snapshot as Prometheus metrics. Values
// are read at scrape time so the Collector stays the single source of truth.
type PrometheusExporter struct {
	collector *Collector
	shutdown  contracts.ShutdownState

	requestsTotal   *prometheus.Desc
	requestsByState *prometheus.Desc
	requestRate     *prometheus.Desc
	avgLatency      *prometheus.Desc
	errorsTotal     *prometheus.Desc
	errorsByType    *prometheus.Desc
	errorsLastMin   *prometheus.Desc
	schedulingLag   *prometheus.Desc
	cpuSeconds      *prometheus.Desc
	residentMemory  *prometheus.Desc
	heapUsed        *prometheus.Desc
	shuttingDown    *prometheus.Desc
}

// NewPrometheusExporter creates an exporter for c. shutdown may be nil.
func NewPrometheusExporter(c *Collector, shutdown contracts.ShutdownState) *PrometheusExporter {
	ns := constants.MetricsNamespace
	return &PrometheusExporter{
		collector: c,
		shutdown:  shutdown,
		requestsTotal: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "requests", "total"),
			"Total number of instrumented HTTP requests", nil, nil),
		requestsByState: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "requests", "outcome_total"),
			"Instrumented HTTP requests by outcome", []string{"outcome"}, nil),
		requestRate: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "requests", "per_second"),
			"Average request rate since start or last reset", nil, nil),
		avgLatency: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "request", "duration_avg_milliseconds"),
			"Mean latency over the retained request samples", nil, nil),
		errorsTotal: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "errors", "total"),
			"Total number of recorded errors", nil, nil),
		errorsByType: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "errors", "by_type_total"),
			"Recorded errors by type", []string{"type"}, nil),
		errorsLastMin: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "errors", "last_minute"),
			"Retained errors recorded within the trailing minute", nil, nil),
		schedulingLag: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "scheduling", "lag_milliseconds"),
			"Mean goroutine scheduling delay over the retained samples", nil, nil),
		cpuSeconds: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "process", "cpu_seconds_total"),
			"Process CPU time by mode", []string{"mode"}, nil),
		residentMemory: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "process", "resident_memory_bytes"),
			"Resident set size of the process", nil, nil),
		heapUsed: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "process", "heap_used_bytes"),
			"Bytes of allocated heap objects", nil, nil),
		shuttingDown: prometheus.NewDesc(
			prometheus.BuildFQName(ns, "shutdown", "in_progress"),
			"1 while graceful shutdown is running", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (e *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.requestsTotal
	ch <- e.requestsByState
	ch <- e.requestRate
	ch <- e.avgLatency
	ch <- e.errorsTotal
	ch <- e.errorsByType
	ch <- e.errorsLastMin
	ch <- e.schedulingLag
	ch <- e.cpuSeconds
	ch <- e.residentMemory
	ch <- e.heapUsed
	ch <- e.shuttingDown
}

// Collect implements prometheus.Collector.
func (e *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	snap := e.collector.GetMetrics()

	ch <- prometheus.MustNewConstMetric(e.requestsTotal, prometheus.CounterValue, float64(snap.Requests.Total))
	ch <- prometheus.MustNewConstMetric(e.requestsByState, prometheus.CounterValue, float64(snap.Requests.Success), "success")
	ch <- prometheus.MustNewConstMetric(e.requestsByState, prometheus.CounterValue, float64(snap.Requests.Error), "error")
	ch <- prometheus.MustNewConstMetric(e.requestRate, prometheus.GaugeValue, snap.Requests.Rate)
	ch <- prometheus.MustNewConstMetric(e.avgLatency, prometheus.GaugeValue, snap.Requests.AverageResponseTime)

	ch <- prometheus.MustNewConstMetric(e.errorsTotal, prometheus.CounterValue, float64(snap.Errors.Total))
	for errType, count := range snap.Errors.ByType {
		ch <- prometheus.MustNewConstMetric(e.errorsByType, prometheus.CounterValue, float64(count), errType)
	}
	ch <- prometheus.MustNewConstMetric(e.errorsLastMin, prometheus.GaugeValue, float64(snap.Errors.Rate))

	ch <- prometheus.MustNewConstMetric(e.schedulingLag, prometheus.GaugeValue, snap.Performance.SchedulingLag)
	if cpu := snap.Performance.CPUUsage; cpu.Available {
		ch <- prometheus.MustNewConstMetric(e.cpuSeconds, prometheus.CounterValue, float64(cpu.User)/1e6, "user")
		ch <- prometheus.MustNewConstMetric(e.cpuSeconds, prometheus.CounterValue, float64(cpu.System)/1e6, "system")
	}
	ch <- prometheus.MustNewConstMetric(e.residentMemory, prometheus.GaugeValue, float64(snap.Performance.MemoryUsage.RSS))
	ch <- prometheus.MustNewConstMetric(e.heapUsed, prometheus.GaugeValue, float64(snap.Performance.MemoryUsage.HeapUsed))

	var shuttingDown float64
	if e.shutdown != nil && e.shutdown.IsShuttingDown() {
		shuttingDown = 1
	}
	ch <- prometheus.MustNewConstMetric(e.shuttingDown, prometheus.GaugeValue, shuttingDown)
}

// NewRegistry returns a registry holding the exporter plus the standard Go
// runtime collector.
func NewRegistry(exporter *PrometheusExporter) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(exporter, collectors.NewGoCollector())
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
