package logging

import (
	"io"
	"log/slog"
	"strings"
)

// #region component-logger
// New returns the default logger scoped to a component, e.g. New("engine").
func New(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// Setup installs the process-wide slog handler. format is "json" or "text";
// level is one of debug, info, warn, error (unknown values mean info).
func Setup(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// #endregion component-logger
