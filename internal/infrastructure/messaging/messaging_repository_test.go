// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

type fakeConn struct {
	mu         sync.Mutex
	connected  bool
	closed     bool
	draining   bool
	drainDelay time.Duration
	publishErr error
	drainErr   error
	published  map[string][][]byte
	flushes    int
	closes     int
}

func newFakeConn() *fakeConn {
	return &fakeConn{connected: true, published: make(map[string][][]byte)}
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published[subject] = append(f.published[subject], data)
	return nil
}

func (f *fakeConn) FlushWithContext(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

func (f *fakeConn) Drain() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.drainErr != nil {
		return f.drainErr
	}
	f.draining = true
	delay := f.drainDelay
	go func() {
		time.Sleep(delay)
		f.mu.Lock()
		f.closed = true
		f.connected = false
		f.mu.Unlock()
	}()
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.closed = true
	f.connected = false
}

func (f *fakeConn) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) IsDraining() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draining && !f.closed
}

func (f *fakeConn) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func newTestRepo(t *testing.T, conn *fakeConn) *MessagingRepository {
	logger, _ := logging.TestLogger(t)
	repo := NewMessagingRepository(conn, logger)
	repo.pollInterval = 5 * time.Millisecond
	return repo
}

func TestPublishLifecycle(t *testing.T) {
	conn := newFakeConn()
	repo := newTestRepo(t, conn)

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := repo.PublishLifecycle(context.Background(), contracts.LifecycleEvent{
		Service: "cityevents-api", Event: "shutdown", Signal: "SIGTERM", Timestamp: ts,
	})
	require.NoError(t, err)

	msgs := conn.published["cityevents.lifecycle.shutdown"]
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, conn.flushes)

	var decoded contracts.LifecycleEvent
	require.NoError(t, json.Unmarshal(msgs[0], &decoded))
	assert.Equal(t, "SIGTERM", decoded.Signal)
	assert.True(t, decoded.Timestamp.Equal(ts))
}

func TestPublishLifecycle_OtherEventSubject(t *testing.T) {
	conn := newFakeConn()
	repo := newTestRepo(t, conn)

	require.NoError(t, repo.PublishLifecycle(context.Background(), contracts.LifecycleEvent{Event: "started"}))
	assert.Len(t, conn.published["cityevents.lifecycle.started"], 1)
}

func TestPublishLifecycle_Errors(t *testing.T) {
	conn := newFakeConn()
	conn.connected = false
	repo := newTestRepo(t, conn)
	assert.ErrorContains(t, repo.PublishLifecycle(context.Background(), contracts.LifecycleEvent{}), "not available")

	conn = newFakeConn()
	conn.publishErr = errors.New("slow consumer")
	repo = newTestRepo(t, conn)
	assert.ErrorContains(t, repo.PublishLifecycle(context.Background(), contracts.LifecycleEvent{}), "slow consumer")
}

func TestDrain_Completes(t *testing.T) {
	conn := newFakeConn()
	conn.drainDelay = 20 * time.Millisecond
	repo := newTestRepo(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, repo.Drain(ctx))
	assert.True(t, conn.IsClosed())
	assert.Zero(t, conn.closes, "drain closes the connection itself")
	require.NoError(t, repo.Drain(ctx), "already closed")
}

func TestDrain_TimesOut(t *testing.T) {
	conn := newFakeConn()
	conn.drainDelay = time.Hour
	repo := newTestRepo(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := repo.Drain(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, conn.closes)
}

func TestDrain_StartFailureCloses(t *testing.T) {
	conn := newFakeConn()
	conn.drainErr = errors.New("connection reset")
	repo := newTestRepo(t, conn)

	err := repo.Drain(context.Background())
	assert.ErrorContains(t, err, "connection reset")
	assert.True(t, conn.IsClosed())
}

func TestDrain_NilConnection(t *testing.T) {
	logger, _ := logging.TestLogger(t)
	repo := &MessagingRepository{logger: logger}
	assert.NoError(t, repo.Drain(context.Background()))
}
