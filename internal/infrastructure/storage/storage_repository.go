// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package storage implements the catalog database on gorm, backed by SQLite or PostgreSQL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cityevents/cityevents-api/internal/domain/contracts"
	"github.com/cityevents/cityevents-api/internal/domain/entities"
	"github.com/cityevents/cityevents-api/internal/infrastructure/config"
	"github.com/cityevents/cityevents-api/pkg/constants"
	"github.com/cityevents/cityevents-api/pkg/logging"
)

// StorageRepository implements contracts.CatalogRepository on gorm
type StorageRepository struct {
	db      *gorm.DB
	cb      *gobreaker.CircuitBreaker
	logger  *slog.Logger
	timeout time.Duration
	closed  atomic.Bool

	// ping is the liveness read; replaced in tests
	ping func(ctx context.Context) error
}

// NewCircuitBreaker returns a breaker that opens after 3 consecutive failed
// pings and probes again after 30 seconds.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
}

// migrate creates or updates the catalog schema; replaced in tests
var migrate = func(db *gorm.DB) error {
	return db.AutoMigrate(entities.AllModels()...)
}

// Open connects to the configured backend and migrates the catalog schema.
func Open(cfg config.DatabaseConfig, logger *slog.Logger) (*StorageRepository, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." && cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		// WAL allows concurrent readers; busy_timeout waits on a locked database
		dialector = sqlite.Open(cfg.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, &contracts.DBError{Kind: contracts.DBErrorConnection, Op: "open", Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	if cfg.Type == "postgres" {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if err := migrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return NewStorageRepository(db, NewCircuitBreaker(constants.ComponentDatabase), cfg.PingTimeout, logger), nil
}

// NewStorageRepository wraps an open gorm handle.
func NewStorageRepository(db *gorm.DB, cb *gobreaker.CircuitBreaker, timeout time.Duration, logger *slog.Logger) *StorageRepository {
	r := &StorageRepository{
		db:      db,
		cb:      cb,
		timeout: timeout,
		logger:  logging.WithComponent(logger, constants.ComponentDatabase),
	}
	r.ping = r.selectOne
	return r
}

// Ping issues SELECT 1 through the circuit breaker.
func (r *StorageRepository) Ping(ctx context.Context) error {
	if err := r.checkOpen("ping"); err != nil {
		return err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	_, err := r.cb.Execute(func() (any, error) {
		return nil, r.ping(ctx)
	})
	if err != nil {
		dbErr := classify("ping", err)
		logging.FromContext(ctx, r.logger).Debug("Database ping failed", "kind", dbErr.Kind, "error", err.Error())
		return dbErr
	}
	return nil
}

// Disconnect closes the underlying pool. Calling it twice is a no-op.
func (r *StorageRepository) Disconnect(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	sqlDB, err := r.db.DB()
	if err != nil {
		return classify("disconnect", err)
	}

	done := make(chan error, 1)
	go func() { done <- sqlDB.Close() }()

	select {
	case err := <-done:
		if err != nil {
			return classify("disconnect", err)
		}
		r.logger.Info("Database connection pool closed")
		return nil
	case <-ctx.Done():
		return classify("disconnect", ctx.Err())
	}
}

// ListCities returns up to limit cities ordered by name
func (r *StorageRepository) ListCities(ctx context.Context, limit int) ([]entities.City, error) {
	if err := r.checkOpen("list cities"); err != nil {
		return nil, err
	}

	var cities []entities.City
	q := r.db.WithContext(ctx).Order("name")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&cities).Error; err != nil {
		return nil, classify("list cities", err)
	}
	return cities, nil
}

// ListEvents returns up to limit events for a city ordered by start time
func (r *StorageRepository) ListEvents(ctx context.Context, cityID uint, limit int) ([]entities.Event, error) {
	if err := r.checkOpen("list events"); err != nil {
		return nil, err
	}

	var events []entities.Event
	q := r.db.WithContext(ctx).Where("city_id = ?", cityID).Order("starts_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, classify("list events", err)
	}
	return events, nil
}

// CountCities returns the number of cities
func (r *StorageRepository) CountCities(ctx context.Context) (int64, error) {
	if err := r.checkOpen("count cities"); err != nil {
		return 0, err
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&entities.City{}).Count(&n).Error; err != nil {
		return 0, classify("count cities", err)
	}
	return n, nil
}

// Create inserts a city or event model
func (r *StorageRepository) Create(ctx context.Context, model any) error {
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return classify("create", err)
	}
	return nil
}

func (r *StorageRepository) checkOpen(op string) error {
	if r.closed.Load() {
		return &contracts.DBError{Kind: contracts.DBErrorClosed, Op: op, Err: errors.New("database is closed")}
	}
	return nil
}

func (r *StorageRepository) selectOne(ctx context.Context) error {
	var one int
	return r.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

// classify maps driver and breaker errors to a tagged DBError.
func classify(op string, err error) *contracts.DBError {
	var dbErr *contracts.DBError
	if errors.As(err, &dbErr) {
		return dbErr
	}

	kind := contracts.DBErrorUnknown
	var (
		pgErr      *pgconn.PgError
		connectErr *pgconn.ConnectError
		netErr     net.Error
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kind = contracts.DBErrorTimeout
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		kind = contracts.DBErrorCircuitOpen
	case errors.As(err, &connectErr), errors.As(err, &netErr):
		kind = contracts.DBErrorConnection
	case errors.As(err, &pgErr), errors.Is(err, gorm.ErrRecordNotFound):
		kind = contracts.DBErrorQuery
	}
	return &contracts.DBError{Kind: kind, Op: op, Err: err}
}

var _ contracts.CatalogRepository = (*StorageRepository)(nil)
