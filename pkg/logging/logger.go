package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the level ("debug", "info", "warn", "error") and the
// handler format ("json" or "text").
type Config struct {
	Level  string
	Format string
}

// ParseLevel maps a level name to a slog.Level. Unknown names fall back to
// INFO and report ok=false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// InitLogger builds the process logger and installs it as the slog default.
func InitLogger(cfg Config) *slog.Logger {
	return initLogger(os.Stdout, cfg)
}

func initLogger(w io.Writer, cfg Config) *slog.Logger {
	level, ok := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	switch format {
	case "json":
		opts.AddSource = true
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	if !ok {
		logger.Warn("invalid log level specified, defaulting to INFO", "specified_level", cfg.Level)
	}
	if format != "" && format != "json" && format != "text" {
		logger.Warn("invalid log format specified, defaulting to text", "specified_format", cfg.Format)
	}
	logger.Debug("logger initialized", "level", level.String(), "format", cfg.Format)
	return logger
}

// NewComponentLogger creates a component-specific logger with context.
// It adds the component name to all log messages for better traceability.
func NewComponentLogger(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With(
		slog.String("component", component),
	)
}
