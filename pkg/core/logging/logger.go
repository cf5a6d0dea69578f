// ============================================================================
// englishquery - Natural Language Database Queries
// ============================================================================
//
// Package:     logging
// Description: Named key-value logger on top of zap
// Author:      Mike Stoffels
// Created:     2026-01-12
// License:     MIT
// ============================================================================

package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is a named logger with key-value helpers
type Logger struct {
	sugar *zap.SugaredLogger
	name  string
}

// New creates a logger named after a component. It writes through the
// process-wide base logger installed by Configure.
func New(name string) *Logger {
	return NewWithZap(name, base())
}

// NewWithZap wraps an existing zap logger
func NewWithZap(name string, z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{sugar: z.Named(name).Sugar(), name: name}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar(), name: "nop"}
}

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// WithLevel returns a logger that drops entries below level
func (l *Logger) WithLevel(level Level) *Logger {
	z := l.sugar.Desugar().WithOptions(zap.IncreaseLevel(level.zapLevel()))
	return &Logger{sugar: z.Sugar(), name: l.name}
}

// With returns a child logger carrying the given key-value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(keysAndValues...), name: l.name}
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
