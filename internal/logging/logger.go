// Package logging provides the structured logger used across the service.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines methods for structured logging.
// All methods accept key-value pairs for structured fields.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	zl zerolog.Logger
}

var _ Logger = (*ZeroLogger)(nil)

// New creates a zerolog-backed logger.
//
// level is any zerolog level name ("debug", "info", ...); unknown values fall back to info.
// format "json" writes one JSON object per line, anything else writes human-readable
// console output. A nil w writes to stderr.
func New(level, format string, w io.Writer) *ZeroLogger {
	if w == nil {
		w = os.Stderr
	}
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return &ZeroLogger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// With returns a child logger that always carries the given fields.
func (l *ZeroLogger) With(keysAndValues ...any) *ZeroLogger {
	return &ZeroLogger{zl: l.zl.With().Fields(keysAndValues).Logger()}
}

func (l *ZeroLogger) Debug(msg string, keysAndValues ...any) {
	l.zl.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *ZeroLogger) Info(msg string, keysAndValues ...any) {
	l.zl.Info().Fields(keysAndValues).Msg(msg)
}

func (l *ZeroLogger) Warn(msg string, keysAndValues ...any) {
	l.zl.Warn().Fields(keysAndValues).Msg(msg)
}

func (l *ZeroLogger) Error(msg string, keysAndValues ...any) {
	l.zl.Error().Fields(keysAndValues).Msg(msg)
}

// NopLogger discards everything.
type NopLogger struct{}

// NewNop returns a logger that discards all output.
func NewNop() NopLogger { return NopLogger{} }

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
