// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package contracts

import (
	"context"
	"errors"
	"fmt"

	"github.com/cityevents/cityevents-api/internal/domain/entities"
)

// DBErrorKind classifies a database failure at the storage boundary.
type DBErrorKind string

const (
	DBErrorConnection  DBErrorKind = "connection"
	DBErrorTimeout     DBErrorKind = "timeout"
	DBErrorQuery       DBErrorKind = "query"
	DBErrorClosed      DBErrorKind = "closed"
	DBErrorCircuitOpen DBErrorKind = "circuit_open"
	DBErrorUnknown     DBErrorKind = "unknown"
)

// DBError is the only error type returned by Database implementations.
type DBError struct {
	Kind DBErrorKind
	Op   string
	Err  error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("database %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *DBError) Unwrap() error {
	return e.Err
}

// DBErrorKindOf returns the kind carried by err, or DBErrorUnknown.
func DBErrorKindOf(err error) DBErrorKind {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Kind
	}
	return DBErrorUnknown
}

// Database is the collaborator consumed by the lifecycle core: a cheap read
// for liveness and a disconnect for the final shutdown phase.
type Database interface {
	// Ping issues a lightweight read against the database
	Ping(ctx context.Context) error

	// Disconnect releases the connection pool
	Disconnect(ctx context.Context) error
}

// CatalogRepository is the CRUD surface used by the city/event endpoints.
type CatalogRepository interface {
	Database

	ListCities(ctx context.Context, limit int) ([]entities.City, error)
	ListEvents(ctx context.Context, cityID uint, limit int) ([]entities.Event, error)
	CountCities(ctx context.Context) (int64, error)
}
