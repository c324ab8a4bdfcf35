// Package logger provides the leveled structured logger handed to every
// pipeline component.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Canonical field names shared across packages.
const (
	KeyPath     = "path"
	KeyURL      = "url"
	KeyDir      = "dir"
	KeyError    = "error"
	KeyPage     = "page"
	KeyStatus   = "status"
	KeyJobID    = "job_id"
	KeySuccess  = "succeeded"
	KeyFailures = "failed"
)

// Logger is the logging capability passed to each component. It mirrors the
// slog call shape so any slog-backed adapter satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Level represents the minimum log level
type Level slog.Level

const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// LevelFromString converts a level name to a Level, defaulting to info.
func LevelFromString(value string) Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// StructuredLogger implements Logger on top of slog.
type StructuredLogger struct {
	logger *slog.Logger
}

// New returns a StructuredLogger writing tinted text to w. Colour is only
// enabled when w is a terminal.
func New(level Level, w io.Writer) *StructuredLogger {
	if w == nil {
		w = os.Stderr
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	handler := tint.NewHandler(w, &tint.Options{
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
		Level:      slog.Level(level),
	})
	return &StructuredLogger{logger: slog.New(handler)}
}

// FromSlog wraps an existing slog.Logger.
func FromSlog(l *slog.Logger) *StructuredLogger {
	if l == nil {
		l = slog.Default()
	}
	return &StructuredLogger{logger: l}
}

func (l *StructuredLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *StructuredLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *StructuredLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *StructuredLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *StructuredLogger) With(args ...any) Logger {
	return &StructuredLogger{logger: l.logger.With(args...)}
}

// NullLogger discards everything.
type NullLogger struct{}

// NewNullLogger returns a new NullLogger instance
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Debug(msg string, args ...any) {}
func (l *NullLogger) Info(msg string, args ...any)  {}
func (l *NullLogger) Warn(msg string, args ...any)  {}
func (l *NullLogger) Error(msg string, args ...any) {}
func (l *NullLogger) With(args ...any) Logger       { return l }

// OrNull returns l, or a NullLogger when l is nil.
func OrNull(l Logger) Logger {
	if l == nil {
		return NewNullLogger()
	}
	return l
}
