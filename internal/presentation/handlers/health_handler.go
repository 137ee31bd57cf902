// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package handlers provides the HTTP handlers and middleware of the API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cityevents/cityevents-api/internal/domain/services"
	"github.com/cityevents/cityevents-api/pkg/constants"
)

// HealthHandler serves the health, readiness, liveness and shutdown status probes
type HealthHandler struct {
	healthService *services.HealthService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(healthService *services.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

// HandleHealthCheck serves the aggregated verdict. Degraded still answers 200.
func (h *HealthHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	verdict := h.healthService.GetHealthCheck(r.Context())
	writeJSON(w, StatusCodeFor(verdict.Status), verdict)
}

// HandleReadiness handles readiness probe requests
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	result := h.healthService.GetReadinessCheck(r.Context())

	statusCode := http.StatusOK
	if !result.Ready {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, result)
}

// HandleLiveness handles liveness probe requests
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.healthService.CheckLiveness()) // Liveness always returns 200
}

// HandleShutdownStatus reports the shutdown flag and sequence progress
func (h *HealthHandler) HandleShutdownStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.healthService.GetShutdownStatus())
}

// StatusCodeFor maps a health status to the HTTP status code of the health endpoint.
func StatusCodeFor(status string) int {
	switch status {
	case constants.StatusHealthy, constants.StatusDegraded:
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}

// RegisterRoutes registers the health check routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get(constants.HealthPath, h.HandleHealthCheck)
	r.Get(constants.ReadinessPath, h.HandleReadiness)
	r.Get(constants.LivenessPath, h.HandleLiveness)
	r.Get(constants.ShutdownStatusPath, h.HandleShutdownStatus)
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(data, '\n'))
}
