// Package logging defines the small Logger interface used across the module
// and a log/slog backed implementation that can also write to a rotating file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger receives structured log lines. Args are slog-style key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Level mirrors slog levels without leaking slog into configuration.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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

// ParseLevel converts a string into a Level, defaulting to LevelInfo.
func ParseLevel(value string) Level {
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

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Rotation configures the rotating log file.
type Rotation struct {
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// Config configures New.
type Config struct {
	Level  Level
	Format string // json or text
	// Output defaults to os.Stderr unless NoTerminal is set.
	Output     io.Writer
	NoTerminal bool
	// File enables a rotating log file in addition to Output.
	File     string
	Rotation *Rotation
	// Component is attached to every line when set.
	Component string
}

// New builds a slog-backed Logger from cfg.
func New(cfg Config) Logger {
	var writers []io.Writer
	if !cfg.NoTerminal {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, out)
	}
	if cfg.File != "" {
		rotation := cfg.Rotation
		if rotation == nil {
			rotation = &Rotation{MaxSize: 128, MaxBackups: 5, MaxAge: 16}
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    rotation.MaxSize,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAge,
			Compress:   rotation.Compress,
		})
	}
	if len(writers) == 0 {
		return Noop()
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.slog()}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(io.MultiWriter(writers...), opts)
	} else {
		handler = slog.NewJSONHandler(io.MultiWriter(writers...), opts)
	}
	logger := slog.New(handler)
	if cfg.Component != "" {
		logger = logger.With("component", cfg.Component)
	}
	return FromSlog(logger)
}

// FromSlog adapts an existing *slog.Logger.
func FromSlog(logger *slog.Logger) Logger {
	if logger == nil {
		return Noop()
	}
	return slogAdapter{logger: logger}
}

type slogAdapter struct {
	logger *slog.Logger
}

func (s slogAdapter) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }
func (s slogAdapter) Info(msg string, args ...any)  { s.logger.Info(msg, args...) }
func (s slogAdapter) Warn(msg string, args ...any)  { s.logger.Warn(msg, args...) }
func (s slogAdapter) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

// Noop returns a Logger that discards everything.
func Noop() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// OrNoop returns logger, or a discarding Logger when logger is nil.
func OrNoop(logger Logger) Logger {
	if logger == nil {
		return Noop()
	}
	return logger
}
