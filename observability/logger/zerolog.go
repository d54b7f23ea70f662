// Package logger implements observability.Logger on top of zerolog.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/weheartit/whi-url-fetcher/observability"
)

// Config controls the zerolog-backed logger.
type Config struct {
	// ServiceName is stamped on every entry.
	ServiceName string

	// Level is the minimum level: "debug", "info", "warn", "error".
	Level string

	// Output defaults to os.Stdout.
	Output io.Writer

	// Pretty enables human-readable console output for development.
	Pretty bool
}

// New builds a logger for the given component.
func New(cfg Config, component string) observability.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	zl := zerolog.New(out).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("component", component).
		Logger().
		Level(parseLevel(cfg.Level))

	return &zerologLogger{log: zl}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type zerologLogger struct {
	log zerolog.Logger
}

func (l *zerologLogger) Debug(ctx context.Context, msg string, fields observability.Fields) {
	l.emit(l.log.Debug(), msg, fields)
}

func (l *zerologLogger) Info(ctx context.Context, msg string, fields observability.Fields) {
	l.emit(l.log.Info(), msg, fields)
}

func (l *zerologLogger) Warn(ctx context.Context, msg string, fields observability.Fields) {
	l.emit(l.log.Warn(), msg, fields)
}

func (l *zerologLogger) Error(ctx context.Context, msg string, err error, fields observability.Fields) {
	l.emit(l.log.Error().Err(err), msg, fields)
}

func (l *zerologLogger) WithFields(fields observability.Fields) observability.Logger {
	zctx := l.log.With()
	for k, v := range fields {
		zctx = zctx.Interface(k, v)
	}
	return &zerologLogger{log: zctx.Logger()}
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields observability.Fields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
