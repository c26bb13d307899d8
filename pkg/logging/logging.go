// Package logging wires the process-wide slog.Logger used throughout
// turbowrap: JSON handler for production, text handler for local
// development, both reading their level from an environment variable.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a slog.Logger. format is "json" or "text" (default "json");
// levelName is one of debug/info/warn/error (default "info").
func New(format, levelName string) *slog.Logger {
	level := parseLevel(levelName)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// FromEnv builds a Logger from LOG_FORMAT and LOG_LEVEL, defaulting to
// json/info when unset.
func FromEnv() *slog.Logger {
	return New(os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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
