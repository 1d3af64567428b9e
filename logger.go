// Package localeprefs provides default logging implementations.
package localeprefs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel mirrors slog's levels.
type LogLevel int

const (
	LogLevelDebug LogLevel = LogLevel(slog.LevelDebug)
	LogLevelInfo  LogLevel = LogLevel(slog.LevelInfo)
	LogLevelWarn  LogLevel = LogLevel(slog.LevelWarn)
	LogLevelError LogLevel = LogLevel(slog.LevelError)
)

// Logger is the logging interface used throughout the module.
// The args are alternating key-value pairs, as with slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SetLevel(level LogLevel)
}

// ParseLogLevel maps "debug", "info", "warn"/"warning" and "error" to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidInput, s)
	}
}

// defaultSlogLogger implements Logger on top of slog with a dynamic level.
type defaultSlogLogger struct {
	slogger  *slog.Logger
	levelVar *slog.LevelVar
}

// NewDefaultLogger returns a JSON logger on os.Stderr at info level.
func NewDefaultLogger() Logger {
	return NewLogger(os.Stderr, LogLevelInfo)
}

// NewLogger returns a JSON logger writing to w at the given level.
func NewLogger(w io.Writer, level LogLevel) Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.Level(level))

	return &defaultSlogLogger{
		slogger:  slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar})),
		levelVar: levelVar,
	}
}

func (l *defaultSlogLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *defaultSlogLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *defaultSlogLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *defaultSlogLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// SetLevel changes the level at runtime.
func (l *defaultSlogLogger) SetLevel(level LogLevel) {
	if l.levelVar != nil {
		l.levelVar.Set(slog.Level(level))
	}
}
