package logging

import (
	"log/slog"
	"os"
	"strings"
)

// LevelEnv selects the minimum log level (debug, info, warn, error).
const LevelEnv = "TEOPLE1_LOG_LEVEL"

// New returns a slog.Logger configured for structured, JSON-oriented output.
func New(subsystem string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     ParseLevel(os.Getenv(LevelEnv)),
	})
	return slog.New(handler).With("subsystem", subsystem)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
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
