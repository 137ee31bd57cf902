// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cityevents/cityevents-api/pkg/constants"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

// RequestRecorder receives one call per instrumented request.
type RequestRecorder interface {
	RecordRequest(durationMs float64, success bool)
	RecordError(errType, message string)
}

// Instrument records duration and outcome of every non-health request and logs it.
// Responses below 500 count as successes; 5xx responses also record an
// error of type http_<status>.
func Instrument(recorder RequestRecorder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, reqLogger := logging.WithRequestID(r.Context(), logger)
			w.Header().Set("X-Request-Id", logging.GetRequestID(ctx))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			logArgs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", duration.String(),
			}

			// Probes are polled constantly; keep them out of the statistics and the info log
			if isHealthPath(r.URL.Path) {
				reqLogger.Debug("HTTP request completed", logArgs...)
				return
			}
			reqLogger.Info("HTTP request completed", logArgs...)

			recorder.RecordRequest(float64(duration)/float64(time.Millisecond), status < http.StatusInternalServerError)
			if status >= http.StatusInternalServerError {
				recorder.RecordError(fmt.Sprintf("http_%d", status), fmt.Sprintf("%s %s returned %d", r.Method, r.URL.Path, status))
			}
		})
	}
}

func isHealthPath(path string) bool {
	return path == constants.HealthPath || strings.HasPrefix(path, constants.HealthPath+"/")
}
