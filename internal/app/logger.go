package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the process-wide slog.Logger. Production always logs
// JSON; elsewhere LOG_FORMAT picks between json and the readable text
// handler.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && (cfg.IsProduction() || cfg.LogFormat == "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
