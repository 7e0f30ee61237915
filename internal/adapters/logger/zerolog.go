// Package logger implements the ports.Logger interface on zerolog.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Config controls the zerolog adapter.
type Config struct {
	Level   string // "debug", "info", "warn", "error"
	Console bool   // Human-readable console output instead of JSON
	Out     io.Writer
}

// ZeroLogger adapts zerolog to the ports.Logger interface.
type ZeroLogger struct {
	zl zerolog.Logger
}

// New creates a zerolog-backed logger. Unknown level strings default to info.
func New(cfg Config) *ZeroLogger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zl := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return &ZeroLogger{zl: zl}
}

func (l *ZeroLogger) log(event *zerolog.Event, msg string, fields ...map[string]interface{}) {
	if len(fields) > 0 && fields[0] != nil {
		event = event.Fields(fields[0])
	}
	event.Msg(msg)
}

// Debug logs a message at Debug level.
func (l *ZeroLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(l.zl.Debug(), msg, fields...)
}

// Info logs a message at Info level.
func (l *ZeroLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(l.zl.Info(), msg, fields...)
}

// Warn logs a message at Warning level.
func (l *ZeroLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.log(l.zl.Warn(), msg, fields...)
}

// Error logs an error message at Error level.
func (l *ZeroLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.log(l.zl.Error().Err(err), msg, fields...)
}
