package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AuditFileName is the monthly log file the desk writes next to its store.
func AuditFileName(now time.Time) string {
	return fmt.Sprintf("recetas_audit_%s.log", now.Format("200601"))
}

// ParseLevel maps config strings to slog levels; unknown values fall back to info.
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

// NewFileLogger builds a logger that writes to stderr and, when dir is set,
// to the monthly audit file. The returned closer must be called on shutdown.
func NewFileLogger(stderr io.Writer, dir string, level slog.Level, now time.Time) (*slog.Logger, func() error, error) {
	if stderr == nil {
		stderr = os.Stderr
	}

	noop := func() error { return nil }
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})), noop, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, noop, fmt.Errorf("create log directory %q: %w", dir, err)
	}

	path := filepath.Join(dir, AuditFileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("open log file %q: %w", path, err)
	}

	handler := slog.NewTextHandler(io.MultiWriter(stderr, f), &slog.HandlerOptions{Level: level})
	return slog.New(handler), f.Close, nil
}
