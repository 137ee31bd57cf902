// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package messaging publishes service lifecycle events over NATS.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/internal/infrastructure/config"
	"github.com/cityevents/cityevents-api/pkg/constants"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

// natsConn is the subset of *nats.Conn used here.
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
	Close()
	IsClosed() bool
	IsDraining() bool
	IsConnected() bool
}

// MessagingRepository implements contracts.LifecyclePublisher on a NATS connection
type MessagingRepository struct {
	conn         natsConn
	logger       *slog.Logger
	pollInterval time.Duration
}

// Connect dials NATS using the configured reconnect policy.
func Connect(cfg config.NATSConfig, logger *slog.Logger) (*MessagingRepository, error) {
	conn, err := nats.Connect(
		cfg.URL,
		nats.Name(constants.ServiceName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectionTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewMessagingRepository(conn, logger), nil
}

// NewMessagingRepository wraps an established connection.
func NewMessagingRepository(conn natsConn, logger *slog.Logger) *MessagingRepository {
	return &MessagingRepository{
		conn:         conn,
		logger:       logging.WithComponent(logger, "nats"),
		pollInterval: 100 * time.Millisecond,
	}
}

// PublishLifecycle publishes event on the lifecycle subject for its kind and
// flushes so the message leaves before the connection drains.
func (r *MessagingRepository) PublishLifecycle(ctx context.Context, event contracts.LifecycleEvent) error {
	subject := constants.SubjectLifecycleShutdown
	if event.Event != "" && event.Event != "shutdown" {
		subject = constants.SubjectLifecyclePrefix + event.Event
	}

	if r.conn == nil || !r.conn.IsConnected() {
		return fmt.Errorf("NATS connection not available for publishing to subject %s", subject)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	if err := r.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}
	if err := r.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush subject %s: %w", subject, err)
	}

	r.logger.Info("Lifecycle event published", "subject", subject, "event", event.Event, "signal", event.Signal)
	return nil
}

// Drain drains the connection and waits for it to close. If ctx ends first
// the connection is closed without waiting.
func (r *MessagingRepository) Drain(ctx context.Context) error {
	if r.conn == nil {
		r.logger.Warn("NATS connection is nil, skipping drain")
		return nil
	}
	if r.conn.IsClosed() {
		r.logger.Info("NATS connection already closed, no drain needed")
		return nil
	}

	if !r.conn.IsDraining() {
		r.logger.Info("Starting NATS drain")
		if err := r.conn.Drain(); err != nil {
			r.conn.Close()
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		if r.conn.IsClosed() {
			r.logger.Info("NATS drain completed")
			return nil
		}
		select {
		case <-ctx.Done():
			r.conn.Close()
			return fmt.Errorf("NATS drain did not complete: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

var _ contracts.LifecyclePublisher = (*MessagingRepository)(nil)
