// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cityevents/cityevents-api/internal/infrastructure/config"
)

// newRootCommand builds the CLI. Running without a subcommand serves the API.
func newRootCommand() *cobra.Command {
	flags := &config.CLIConfig{}
	if Version != "dev" {
		flags.Version = Version
	}

	root := &cobra.Command{
		Use:   "cityevents-api",
		Short: "City and event browsing API",
		Long: `cityevents-api serves the city and event catalog together with
health, readiness and metrics endpoints.

Configuration precedence: CLI flags > Environment variables > Defaults

Health endpoints:
  GET /health            Aggregated health verdict (JSON)
  GET /health/ready      Readiness probe
  GET /health/live       Liveness probe
  GET /health/shutdown   Shutdown status
  GET /metrics           Request, error and performance metrics (JSON)
  GET /metrics/prometheus  Prometheus exposition`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(flags)
		},
	}

	root.PersistentFlags().IntVarP(&flags.Port, "port", "p", 0, "HTTP port (env PORT, default 3000)")
	root.PersistentFlags().StringVar(&flags.Bind, "bind", "", "interface to bind on (env BIND, default *)")
	root.PersistentFlags().BoolVarP(&flags.Debug, "debug", "d", false, "enable debug logging with source location")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(flags)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and print the effective values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConfig(cmd, flags)
		},
	})

	return root
}

// checkConfig loads, overrides and validates the configuration without
// connecting to anything.
func checkConfig(cmd *cobra.Command, flags *config.CLIConfig) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyCLI(flags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	cmd.Println(string(out))
	cmd.Println("Configuration is valid")
	return nil
}
