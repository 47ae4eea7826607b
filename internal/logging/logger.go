package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is a thin wrapper over slog with field helpers used by handlers
type Logger struct {
	*slog.Logger
}

// NewLogger builds a text logger at debug level for development and a JSON
// logger at info level otherwise
func NewLogger(isDev bool) *Logger {
	if isDev {
		return NewLoggerWithLevel(true, slog.LevelDebug)
	}
	return NewLoggerWithLevel(false, slog.LevelInfo)
}

// NewLoggerWithLevel is NewLogger with an explicit minimum level
func NewLoggerWithLevel(isDev bool, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isDev {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// New wraps an existing slog handler, mostly useful in tests
func New(handler slog.Handler) *Logger {
	return &Logger{Logger: slog.New(handler)}
}

// ParseLevel maps LOG_LEVEL values to slog levels; ok is false for unknown input
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// WithFields returns a child logger carrying the given attributes
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.Logger.With(args...)}
}
