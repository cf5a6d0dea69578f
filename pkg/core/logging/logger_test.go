package logging

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	logger := New("test-service")

	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.Name() != "test-service" {
		t.Errorf("Name() = %v, want test-service", logger.Name())
	}
}

func TestLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithZap("db", zap.New(core))

	logger.Info("connected", "host", "localhost", "port", 3306)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].LoggerName != "db" {
		t.Errorf("LoggerName = %v, want db", entries[0].LoggerName)
	}
	ctx := entries[0].ContextMap()
	if ctx["host"] != "localhost" {
		t.Errorf("host = %v, want localhost", ctx["host"])
	}
	if ctx["port"] != int64(3306) {
		t.Errorf("port = %v, want 3306", ctx["port"])
	}
}

func TestLogger_WithLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithZap("test", zap.New(core)).WithLevel(LevelWarn)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	if logs.Len() != 2 {
		t.Errorf("entries = %d, want 2", logs.Len())
	}
	if logger.Name() != "test" {
		t.Errorf("name should be preserved: got %v", logger.Name())
	}
}

func TestLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewWithZap("test", zap.New(core)).With("session", "abc")

	logger.Info("message")

	if got := logs.All()[0].ContextMap()["session"]; got != "abc" {
		t.Errorf("session = %v, want abc", got)
	}
}

func TestLogger_OddKeyValues(t *testing.T) {
	logger := NewNop()

	// Should not panic with odd number of key-values
	logger.Info("message", "key1", "value1", "orphan")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"invalid", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDefaultLoggerConfig(t *testing.T) {
	cfg := DefaultLoggerConfig("my-service")

	if cfg.ServiceName != "my-service" {
		t.Errorf("ServiceName = %v, want my-service", cfg.ServiceName)
	}
	if cfg.Level != "info" {
		t.Errorf("Level = %v, want info", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %v, want json", cfg.Format)
	}
}

func TestNewLogger_QuietWithoutFile(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Quiet: true})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("quiet logger without file should discard everything")
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "equery.log")

	logger, err := NewLogger(LoggerConfig{
		ServiceName: "test",
		Level:       "debug",
		Format:      "text",
		File:        path,
		Quiet:       true,
	})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled")
	}
	logger.Info("hello")
	_ = logger.Sync()
}

func TestConfigure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetBase(zap.New(core))
	defer SetBase(nil)

	New("component").Info("via base")

	if logs.Len() != 1 {
		t.Errorf("entries = %d, want 1", logs.Len())
	}
}
