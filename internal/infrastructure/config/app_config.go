// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package config loads and validates the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cityevents/cityevents-api/internal/domain/entities"
	"github.com/cityevents/cityevents-api/pkg/constants"
	"github.com/cityevents/cityevents-api/pkg/env"
)

// AppConfig represents the application configuration
type AppConfig struct {
	Environment string         `json:"environment" validate:"required"`
	Version     string         `json:"version" validate:"required"`
	Server      ServerConfig   `json:"server"`
	Database    DatabaseConfig `json:"database"`
	NATS        NATSConfig     `json:"nats"`
	Logging     LoggingConfig  `json:"logging"`
	Shutdown    ShutdownConfig `json:"shutdown"`
	Health      HealthConfig   `json:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `json:"port" validate:"min=1,max=65535"`
	Bind         string        `json:"bind" validate:"required"`
	ReadTimeout  time.Duration `json:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `json:"write_timeout" validate:"gt=0"`
}

// DatabaseConfig selects and configures the SQL backend
type DatabaseConfig struct {
	Type         string        `json:"type" validate:"oneof=sqlite postgres"`
	SQLitePath   string        `json:"sqlite_path" validate:"required_if=Type sqlite"`
	Host         string        `json:"host" validate:"required_if=Type postgres"`
	Port         int           `json:"port" validate:"min=0,max=65535"`
	Name         string        `json:"name" validate:"required_if=Type postgres"`
	User         string        `json:"user" validate:"required_if=Type postgres"`
	Password     string        `json:"-"`
	SSLMode      string        `json:"ssl_mode"`
	MaxOpenConns int           `json:"max_open_conns" validate:"min=0"`
	MaxIdleConns int           `json:"max_idle_conns" validate:"min=0"`
	PingTimeout  time.Duration `json:"ping_timeout" validate:"gt=0"`
}

// NATSConfig contains optional NATS configuration. An empty URL disables messaging.
type NATSConfig struct {
	URL               string        `json:"url" validate:"omitempty,url"`
	MaxReconnects     int           `json:"max_reconnects"`
	ReconnectWait     time.Duration `json:"reconnect_wait"`
	ConnectionTimeout time.Duration `json:"connection_timeout"`
	DrainTimeout      time.Duration `json:"drain_timeout" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" validate:"oneof=json text"`
	Debug  bool   `json:"debug"`
}

// ShutdownConfig bounds the graceful shutdown sequence. Timeout must cover
// at least one full task timeout; the server also extends it to the
// worst case of the registered tasks.
type ShutdownConfig struct {
	Timeout     time.Duration `json:"timeout" validate:"gt=0,gtefield=TaskTimeout"`
	TaskTimeout time.Duration `json:"task_timeout" validate:"gt=0"`
}

// HealthConfig holds the health probe timeout and memory thresholds
type HealthConfig struct {
	Timeout           time.Duration `json:"timeout" validate:"gt=0"`
	HeapCeilingMB     int           `json:"heap_ceiling_mb" validate:"gt=0"`
	RSSHealthyMB      int           `json:"rss_healthy_mb" validate:"gt=0"`
	RSSDegradedMB     int           `json:"rss_degraded_mb" validate:"gtfield=RSSHealthyMB"`
	HeapHealthyRatio  float64       `json:"heap_healthy_ratio" validate:"gt=0,lte=1"`
	HeapDegradedRatio float64       `json:"heap_degraded_ratio" validate:"gtefield=HeapHealthyRatio,lte=1"`
}

// Policy converts the configuration into the health service thresholds.
func (h HealthConfig) Policy() entities.HealthPolicy {
	return entities.HealthPolicy{
		Timeout:           h.Timeout,
		HeapCeilingMB:     h.HeapCeilingMB,
		RSSHealthyMB:      h.RSSHealthyMB,
		RSSDegradedMB:     h.RSSDegradedMB,
		HeapHealthyRatio:  h.HeapHealthyRatio,
		HeapDegradedRatio: h.HeapDegradedRatio,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*AppConfig, error) {
	config := &AppConfig{
		Environment: env.GetString("APP_ENV", constants.DefaultEnvironment),
		Version:     env.GetString("APP_VERSION", constants.ServiceVersion),
		Server: ServerConfig{
			Port:         env.GetInt("PORT", constants.DefaultPort),
			Bind:         env.GetString("BIND", constants.DefaultBindAddress),
			ReadTimeout:  env.GetDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: env.GetDuration("WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Type:         strings.ToLower(env.GetString("DB_TYPE", constants.DefaultDBType)),
			SQLitePath:   env.GetString("DB_PATH", constants.DefaultSQLitePath),
			Host:         env.GetString("DB_HOST", ""),
			Port:         env.GetInt("DB_PORT", 5432),
			Name:         env.GetString("DB_NAME", ""),
			User:         env.GetString("DB_USER", ""),
			Password:     env.GetString("DB_PASSWORD", ""),
			SSLMode:      env.GetString("DB_SSLMODE", "disable"),
			MaxOpenConns: env.GetInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: env.GetInt("DB_MAX_IDLE_CONNS", 5),
			PingTimeout:  env.GetDuration("DB_PING_TIMEOUT", 2*time.Second),
		},
		NATS: NATSConfig{
			URL:               env.GetString("NATS_URL", ""),
			MaxReconnects:     env.GetInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:     env.GetDuration("NATS_RECONNECT_WAIT", 2*time.Second),
			ConnectionTimeout: env.GetDuration("NATS_CONNECTION_TIMEOUT", 10*time.Second),
			DrainTimeout:      env.GetDuration("NATS_DRAIN_TIMEOUT", constants.NATSDrainTimeout),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(env.GetString("LOG_LEVEL", constants.DefaultLogLevel)),
			Format: strings.ToLower(env.GetString("LOG_FORMAT", constants.DefaultLogFormat)),
			Debug:  env.GetBool("DEBUG", false),
		},
		Shutdown: ShutdownConfig{
			Timeout:     env.GetDuration("SHUTDOWN_TIMEOUT", constants.ShutdownTimeout),
			TaskTimeout: env.GetDuration("CLEANUP_TASK_TIMEOUT", constants.CleanupTaskTimeout),
		},
		Health: HealthConfig{
			Timeout:           env.GetDuration("HEALTH_CHECK_TIMEOUT", constants.HealthCheckTimeout),
			HeapCeilingMB:     env.GetInt("MEMORY_HEAP_CEILING_MB", constants.DefaultHeapCeilingMB),
			RSSHealthyMB:      env.GetInt("MEMORY_RSS_HEALTHY_MB", constants.DefaultRSSHealthyMB),
			RSSDegradedMB:     env.GetInt("MEMORY_RSS_DEGRADED_MB", constants.DefaultRSSDegradedMB),
			HeapHealthyRatio:  env.GetFloat("MEMORY_HEAP_HEALTHY_RATIO", constants.DefaultHeapHealthyRatio),
			HeapDegradedRatio: env.GetFloat("MEMORY_HEAP_DEGRADED_RATIO", constants.DefaultHeapDegradedRatio),
		},
	}

	return config, nil
}

// ApplyCLI overrides environment values with explicitly set CLI flags
func (c *AppConfig) ApplyCLI(cli *CLIConfig) {
	if cli == nil {
		return
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Bind != "" {
		c.Server.Bind = cli.Bind
	}
	if cli.Version != "" {
		c.Version = cli.Version
	}
	if cli.Debug {
		c.Logging.Debug = true
		c.Logging.Level = "debug"
	}
}

// Validate validates the configuration
func (c *AppConfig) Validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		msgs := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return fmt.Errorf("invalid config: %w", err)
}

// Address returns the listen address for the HTTP server
func (s ServerConfig) Address() string {
	if s.Bind == "*" {
		return fmt.Sprintf(":%d", s.Port)
	}
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}
