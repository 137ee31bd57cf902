// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package logging

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
)

// SafeBuffer is a bytes.Buffer safe for concurrent writers. Loggers under test
// are written from background goroutines (shutdown tasks, probes).
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestLogger creates a debug-level JSON logger that captures output for testing
func TestLogger(_ *testing.T) (*slog.Logger, *SafeBuffer) {
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return logger, buf
}

// AssertLogContains checks if log output contains expected text
func AssertLogContains(t *testing.T, buf *SafeBuffer, expected string) {
	t.Helper()
	if !bytes.Contains([]byte(buf.String()), []byte(expected)) {
		t.Errorf("Expected log to contain %q, got: %s", expected, buf.String())
	}
}
