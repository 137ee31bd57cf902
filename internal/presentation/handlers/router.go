// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouteRegistrar is implemented by every handler group.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// NewRouter builds the chi router with recovery and request instrumentation
// in front of every handler group.
func NewRouter(recorder RequestRecorder, logger *slog.Logger, groups ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RealIP)
	r.Use(Instrument(recorder, logger))
	r.Use(middleware.Recoverer)

	for _, g := range groups {
		g.RegisterRoutes(r)
	}
	return r
}
