package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/skill-bright/cde-huddle-sub001/internal/config"
)

// Init builds the process logger from cfg, installs it as the slog default
// and returns it. Output goes to stderr, a rotating file, or both.
func Init(cfg config.LogConfig) *slog.Logger {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, os.Stderr)
	}
	if cfg.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	l := New(io.MultiWriter(writers...), cfg.Level)
	slog.SetDefault(l)
	l.Info("logger initialized", "log_level", cfg.Level, "file", cfg.File)
	return l
}

// New returns a JSON logger writing to w at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
