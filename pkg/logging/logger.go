// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package logging provides structured logging for the cityevents API.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	slogotel "github.com/remychantenay/slog-otel"

	"github.com/cityevents/cityevents-api/pkg/env"
)

type contextKey string

const (
	requestLoggerKey contextKey = "request_logger"
	requestIDKey     contextKey = "request_id"
)

// Options controls logger construction. Zero values fall back to LOG_FORMAT and
// LOG_LEVEL from the environment.
type Options struct {
	Debug  bool
	Level  string
	Format string
	Output io.Writer
}

// NewRequestID generates a random (v4) UUID request ID
func NewRequestID() string {
	return uuid.NewString()
}

// NewLogger creates a logger with container-friendly defaults (JSON, info level)
// and installs it as the slog default.
func NewLogger(opts Options) *slog.Logger {
	format := opts.Format
	if format == "" {
		format = env.GetString("LOG_FORMAT", "json")
	}
	level := opts.Level
	if level == "" {
		level = env.GetString("LOG_LEVEL", "info")
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if opts.Debug {
		handlerOpts.Level = slog.LevelDebug
		handlerOpts.AddSource = true
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	// trace_id / span_id from the request context, populated by otelhttp
	logger := slog.New(slogotel.OtelHandler{Next: handler})
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID creates context with request_id and an enhanced logger
func WithRequestID(ctx context.Context, baseLogger *slog.Logger) (context.Context, *slog.Logger) {
	requestID := NewRequestID()
	enhancedLogger := baseLogger.With("request_id", requestID)

	ctx = context.WithValue(ctx, requestIDKey, requestID)
	ctx = context.WithValue(ctx, requestLoggerKey, enhancedLogger)

	return ctx, enhancedLogger
}

// FromContext extracts the request logger from context
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(requestLoggerKey).(*slog.Logger); ok {
		return logger
	}
	return fallback
}

// GetRequestID extracts request_id from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithComponent adds a component field to logger
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// LogError logs an error with structured context
func LogError(logger *slog.Logger, msg string, err error, fields ...any) {
	attrs := []any{"error", err.Error()}
	attrs = append(attrs, fields...)
	logger.Error(msg, attrs...)
}
