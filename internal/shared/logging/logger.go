package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New builds a JSON logger writing to w at the given minimum level.
func New(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: true, Level: level})
	return slog.New(handler).With(slog.String("service", service))
}

// NewText builds a human readable logger, used by the CLI on stderr.
func NewText(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel converts a LOG_LEVEL value into a slog level. Unknown values map to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID returns logger annotated with requestId, or logger itself when the id is empty.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With(slog.String("requestId", requestID))
}
