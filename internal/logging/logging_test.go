package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// captureStderr redirects console output into a buffer for the test.
func captureStderr(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stderr
	stderr = zapcore.AddSync(&buf)
	t.Cleanup(func() { stderr = prev })
	return &buf
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Empty(t, cfg.File)
}

func TestConfigTransportLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"unknown", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{Level: tt.level}
			assert.Equal(t, tt.expected, cfg.TransportLevel())
		})
	}
}

func TestNewLogger_JSONToStderr(t *testing.T) {
	buf := captureStderr(t)

	log := NewLogger(Config{Level: "debug", Format: "json"})
	log.Named("pipeline").With(zap.String("run_id", "abc")).Debug("step applied", zap.Int("index", 2))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.Contains(t, out, `"msg":"step applied"`)
	assert.Contains(t, out, `"logger":"pipeline"`)
	assert.Contains(t, out, `"run_id":"abc"`)
	assert.Contains(t, out, `"index":2`)
}

func TestNewLogger_LevelFilters(t *testing.T) {
	buf := captureStderr(t)

	log := NewLogger(Config{Level: "warn"})
	log.Info("hidden")
	log.Warnf("shown %d", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 1")
}

func TestNewLogger_FileSink(t *testing.T) {
	captureStderr(t)
	path := filepath.Join(t.TempDir(), "server.log")

	log := NewLogger(Config{Level: "info", File: path})
	log.WithError(errors.New("boom")).Error("tool failed")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"msg":"tool failed"`)
	assert.Contains(t, line, `"error":"boom"`)
}

func TestFromZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := FromZap(zap.New(core))

	log.Infof("loaded %s", "a.png")
	log.With(zap.String("key", "rotate")).Warn("skipped")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "loaded a.png", entries[0].Message)
	assert.Equal(t, "rotate", entries[1].ContextMap()["key"])
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.Info("ignored")
		log.Named("x").WithError(errors.New("e")).Error("ignored")
	})
	assert.NotNil(t, log.Zap())
}
