// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     logging
// Description: Construction of the process-wide zap logger
// Author:      Mike Stoffels
// Created:     2026-01-12
// License:     MIT
// ============================================================================

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	baseMu     sync.RWMutex
	baseLogger = zap.NewNop()
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Service name
	ServiceName string

	// Log level (debug, info, warn, error)
	Level string

	// Output format: "json" or "text" (default: json)
	Format string

	// File receives log output in addition to (or instead of) stderr
	File string

	// Quiet suppresses stderr output. Used by full-screen terminal UIs.
	Quiet bool
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(serviceName string) LoggerConfig {
	return LoggerConfig{
		ServiceName: serviceName,
		Level:       "info",
		Format:      "json",
	}
}

// NewLogger builds a zap logger from cfg
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zcfg.Sampling = nil
	if cfg.Format == "text" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var outputs []string
	if !cfg.Quiet {
		outputs = append(outputs, "stderr")
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		outputs = append(outputs, cfg.File)
	}
	if len(outputs) == 0 {
		return zap.NewNop(), nil
	}
	zcfg.OutputPaths = outputs
	zcfg.ErrorOutputPaths = outputs

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.ServiceName != "" {
		logger = logger.With(zap.String("service", cfg.ServiceName))
	}
	return logger, nil
}

// Configure installs the process-wide base logger used by New
func Configure(cfg LoggerConfig) error {
	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	SetBase(logger)
	return nil
}

// SetBase replaces the process-wide base logger
func SetBase(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseMu.Lock()
	old := baseLogger
	baseLogger = logger
	baseMu.Unlock()
	_ = old.Sync()
}

// Sync flushes the base logger
func Sync() error {
	return base().Sync()
}

func base() *zap.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return baseLogger
}

// parseLevel converts a string level to a zap level
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
