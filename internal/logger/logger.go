package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global slog logger. Logs go to stderr so operator
// output on stdout stays readable.
func Setup(level string) *slog.Logger {
	return SetupWriter(os.Stderr, level)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	logger := slog.New(slog.NewTextHandler(w, opts))
	slog.SetDefault(logger)

	logger.Debug("logger initialized", "level", opts.Level.Level().String())
	return logger
}

// ParseLevel maps a config level name to a slog level. Unknown names fall
// back to info.
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
