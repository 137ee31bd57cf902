// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package mocks provides hand-written test doubles for the domain contracts.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/internal/domain/entities"
)

// MockDatabase implements contracts.CatalogRepository for testing
type MockDatabase struct {
	mu sync.Mutex

	// Mock responses
	PingError       error
	DisconnectError error
	PingDelay       time.Duration
	DisconnectDelay time.Duration
	PingPanic       any
	Cities          []entities.City
	Events          []entities.Event

	// Call tracking
	PingCalls       int
	DisconnectCalls int
	DisconnectedAt  time.Time
}

// NewMockDatabase creates a new mock database
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{}
}

// Ping mocks the liveness read
func (m *MockDatabase) Ping(ctx context.Context) error {
	m.mu.Lock()
	m.PingCalls++
	delay, err, p := m.PingDelay, m.PingError, m.PingPanic
	m.mu.Unlock()

	if p != nil {
		panic(p)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &contracts.DBError{Kind: contracts.DBErrorTimeout, Op: "ping", Err: ctx.Err()}
		}
	}
	return err
}

// Disconnect mocks closing the pool
func (m *MockDatabase) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	delay := m.DisconnectDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.DisconnectCalls++
	m.DisconnectedAt = time.Now()
	return m.DisconnectError
}

// ListCities returns the configured cities
func (m *MockDatabase) ListCities(ctx context.Context, limit int) ([]entities.City, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && limit < len(m.Cities) {
		return m.Cities[:limit], nil
	}
	return m.Cities, nil
}

// ListEvents returns the configured events for cityID
func (m *MockDatabase) ListEvents(ctx context.Context, cityID uint, limit int) ([]entities.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.Event
	for _, e := range m.Events {
		if e.CityID == cityID {
			out = append(out, e)
		}
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// CountCities returns the number of configured cities
func (m *MockDatabase) CountCities(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Cities)), nil
}

// SetPingError changes the ping outcome
func (m *MockDatabase) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingError = err
}

// GetDisconnectCalls returns how many times Disconnect ran
func (m *MockDatabase) GetDisconnectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DisconnectCalls
}

// GetPingCalls returns how many times Ping ran
func (m *MockDatabase) GetPingCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingCalls
}

// MockLifecyclePublisher implements contracts.LifecyclePublisher for testing
type MockLifecyclePublisher struct {
	mu sync.Mutex

	PublishError error
	DrainError   error

	Published  []contracts.LifecycleEvent
	DrainCalls int
}

// NewMockLifecyclePublisher creates a new mock publisher
func NewMockLifecyclePublisher() *MockLifecyclePublisher {
	return &MockLifecyclePublisher{}
}

// PublishLifecycle records the event
func (m *MockLifecyclePublisher) PublishLifecycle(ctx context.Context, event contracts.LifecycleEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.Published = append(m.Published, event)
	return nil
}

// Drain records the call
func (m *MockLifecyclePublisher) Drain(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DrainCalls++
	return m.DrainError
}

// GetPublished returns a copy of the published events
func (m *MockLifecyclePublisher) GetPublished() []contracts.LifecycleEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]contracts.LifecycleEvent, len(m.Published))
	copy(out, m.Published)
	return out
}

// GetDrainCalls returns how many times Drain ran
func (m *MockLifecyclePublisher) GetDrainCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DrainCalls
}

var (
	_ contracts.CatalogRepository  = (*MockDatabase)(nil)
	_ contracts.LifecyclePublisher = (*MockLifecyclePublisher)(nil)
)
