package config

import (
	"log/slog"
	"os"
)

// NewLogger builds the service logger: JSON at Info for production,
// text at Debug with source locations everywhere else.
func NewLogger(env string) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: env != "production",
	}

	var handler slog.Handler
	if env == "production" {
		opts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(slog.String("service", "hookline"))
}
