// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/pkg/constants"
)

// MetricsHandler serves the collector snapshot as JSON and in Prometheus text format
type MetricsHandler struct {
	source     contracts.MetricsSource
	prometheus http.Handler
}

// NewMetricsHandler creates a metrics handler. prometheus may be nil.
func NewMetricsHandler(source contracts.MetricsSource, prometheus http.Handler) *MetricsHandler {
	return &MetricsHandler{source: source, prometheus: prometheus}
}

// HandleMetrics writes {requests, performance, errors}
func (h *MetricsHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.GetMetrics())
}

// RegisterRoutes registers the metrics routes
func (h *MetricsHandler) RegisterRoutes(r chi.Router) {
	r.Get(constants.MetricsPath, h.HandleMetrics)
	if h.prometheus != nil {
		r.Method(http.MethodGet, constants.PrometheusPath, h.prometheus)
	}
}
