// Package logging builds the operational slog logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/broadcast-assistant/ba-go/internal/config"
)

// New creates a logger writing to cfg.Output: stdout, stderr, or a file
// path opened for appending. The returned close function releases the
// file, if any.
func New(cfg config.LoggingConfig, version string) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		return NewWithWriter(cfg, version, os.Stderr), noop, nil
	case "stdout":
		return NewWithWriter(cfg, version, os.Stdout), noop, nil
	}

	f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("open log output: %w", err)
	}
	return NewWithWriter(cfg, version, f), f.Close, nil
}

// NewWithWriter creates a logger writing to w, for example the readline
// console in interactive mode.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", "ba-assistant"),
		slog.String("version", version),
	}))
}
