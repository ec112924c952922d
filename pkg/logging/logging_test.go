package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.String())
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo}, // Default for unknown
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, test.level.SlogLevel())
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Info("test-subsystem", "test message %d", 42)

	output := buf.String()
	assert.Contains(t, output, "test message 42")
	assert.Contains(t, output, "test-subsystem")
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	assert.NotContains(t, output, "debug message", "Debug message should be filtered out at INFO level")
	assert.Contains(t, output, "info message")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(FormatJSON, LevelDebug, &buf)

	Error("json", errors.New("boom"), "failed")

	output := buf.String()
	assert.True(t, strings.HasPrefix(output, "{"), "expected JSON output, got %q", output)
	assert.Contains(t, output, `"error":"boom"`)
}

func TestEntryHook(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	var entries []LogEntry
	SetEntryHook(func(e LogEntry) { entries = append(entries, e) })
	defer SetEntryHook(nil)

	Debug("hook", "dropped")
	Warn("hook", "kept %s", "value")

	if assert.Len(t, entries, 1) {
		assert.Equal(t, LevelWarn, entries[0].Level)
		assert.Equal(t, "hook", entries[0].Subsystem)
		assert.Equal(t, "kept value", entries[0].Message)
	}
}
