package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/DonutsDelivery/auto-brightness/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "autobrightness"

// Logger is the daemon's structured logger. Every entry carries the service
// name and build version. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from cfg:
//
//   - Format "text" selects slog's text handler; anything else is JSON.
//   - Output is "stdout" (default), "stderr" or "file". File output is
//     rotated by lumberjack using cfg.File.
//   - Level is debug, info, warn or error; unknown values mean info. At
//     debug level entries also carry their source position.
func New(cfg config.LoggingConfig, version string) *Logger {
	return newWithWriter(cfg, version, outputFor(cfg))
}

func outputFor(cfg config.LoggingConfig) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr
	case "file":
		return &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSize,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAge,
			Compress:   cfg.File.Compress,
		}
	}
	return os.Stdout
}

func newWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{slog.New(h).With("service", serviceName, "version", version)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// With returns a child logger carrying extra attributes, typically a
// component name:
//
//	log := logger.With("component", "ddcutil")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Default is a JSON info-level logger on stdout for use before the config
// is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
