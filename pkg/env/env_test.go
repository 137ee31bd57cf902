// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetters(t *testing.T) {
	t.Setenv("CE_STRING", "value")
	t.Setenv("CE_INT", "42")
	t.Setenv("CE_FLOAT", "0.75")
	t.Setenv("CE_BOOL", "true")
	t.Setenv("CE_DURATION", "1500ms")
	t.Setenv("CE_BAD_INT", "nope")

	assert.Equal(t, "value", GetString("CE_STRING", "default"))
	assert.Equal(t, "default", GetString("CE_MISSING", "default"))
	assert.Equal(t, 42, GetInt("CE_INT", 1))
	assert.Equal(t, 1, GetInt("CE_BAD_INT", 1))
	assert.InDelta(t, 0.75, GetFloat("CE_FLOAT", 0.1), 1e-9)
	assert.True(t, GetBool("CE_BOOL", false))
	assert.Equal(t, 1500*time.Millisecond, GetDuration("CE_DURATION", time.Second))
	assert.Equal(t, time.Second, GetDuration("CE_MISSING", time.Second))
}
