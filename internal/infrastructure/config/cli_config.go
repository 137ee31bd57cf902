// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package config

// CLIConfig holds parsed command line flags and the build version. Zero
// values leave the environment-derived configuration untouched.
type CLIConfig struct {
	Port    int
	Bind    string
	Debug   bool
	Version string // stamped at build time; empty for development builds
}
