// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfig_Valid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check-config", "--port", "8081"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"port": 8081`)
	assert.Contains(t, out.String(), "Configuration is valid")
}

func TestCheckConfig_Invalid(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check-config"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Level")
}

func TestCheckConfig_BuildVersion(t *testing.T) {
	previous := Version
	Version = "2.0.0"
	t.Cleanup(func() { Version = previous })

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check-config"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"version": "2.0.0"`)
}
