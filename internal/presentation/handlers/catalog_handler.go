// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

const defaultListLimit = 100

// CatalogHandler exposes read-only city and event listings
type CatalogHandler struct {
	repo   contracts.CatalogRepository
	logger *slog.Logger
}

// NewCatalogHandler creates a catalog handler
func NewCatalogHandler(repo contracts.CatalogRepository, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{repo: repo, logger: logging.WithComponent(logger, "catalog")}
}

// HandleListCities lists cities
func (h *CatalogHandler) HandleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.repo.ListCities(r.Context(), listLimit(r))
	if err != nil {
		h.writeStoreError(w, r, "list cities", err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

// HandleListEvents lists the events of one city
func (h *CatalogHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	cityID, err := strconv.ParseUint(chi.URLParam(r, "cityID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid city id", http.StatusBadRequest)
		return
	}

	events, err := h.repo.ListEvents(r.Context(), uint(cityID), listLimit(r))
	if err != nil {
		h.writeStoreError(w, r, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// RegisterRoutes registers the catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cities", h.HandleListCities)
	r.Get("/cities/{cityID}/events", h.HandleListEvents)
}

func (h *CatalogHandler) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := logging.FromContext(r.Context(), h.logger)
	logging.LogError(logger, "Catalog query failed", err, "op", op, "kind", contracts.DBErrorKindOf(err))

	status := http.StatusInternalServerError
	switch contracts.DBErrorKindOf(err) {
	case contracts.DBErrorClosed, contracts.DBErrorCircuitOpen, contracts.DBErrorConnection:
		status = http.StatusServiceUnavailable
	}
	http.Error(w, http.StatusText(status), status)
}

func listLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > defaultListLimit {
		return defaultListLimit
	}
	return limit
}
