// Package logger provides structured logging for content-radar services.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance. It defaults to slog's default logger
// until Init runs, so packages can log safely during tests.
var Logger = slog.Default()

// Init initializes a JSON logger writing to stdout. The level is taken from
// LOG_LEVEL and defaults to info.
func Init() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	Logger.Info("Logger initialized", "level", level.String())

	return Logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
