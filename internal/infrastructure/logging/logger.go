package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
)

// Logger is slog with the hub's default fields (service, version)
// attached. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a logger from the logging section of config.yaml: JSON or
// text format, level filtering, stdout or stderr.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}

	return &Logger{
		Logger: slog.New(newHandler(cfg, version, output)),
	}
}

// newHandler builds the configured slog handler writing to w.
func newHandler(cfg config.LoggingConfig, version string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return handler.WithAttrs([]slog.Attr{
		slog.String("service", "hearth"),
		slog.String("version", version),
	})
}

// parseLevel maps a config string to a slog level, defaulting to info.
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

// With returns a child logger with extra default attributes, typically a
// component name:
//
//	mqttLogger := logger.With("component", "mqtt")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Default is the early-startup logger used before config is loaded:
// JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
