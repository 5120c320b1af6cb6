package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewFileLoggerWritesToStderrAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)

	var stderr bytes.Buffer
	logger, closeFn, err := NewFileLogger(&stderr, dir, slog.LevelInfo, now)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	ctx := WithAttrs(WithLogger(context.Background(), logger), slog.String("component", "test"))
	Info(WithActor(ctx, "jcpg"), "receta creada", slog.String("numero", "CE-2025-000001"))

	if err := closeFn(); err != nil {
		t.Fatalf("close() error = %v", err)
	}

	if !strings.Contains(stderr.String(), "numero=CE-2025-000001") {
		t.Fatalf("stderr = %q", stderr.String())
	}

	raw, err := os.ReadFile(filepath.Join(dir, "recetas_audit_202503.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), "actor=jcpg") || !strings.Contains(string(raw), "component=test") {
		t.Fatalf("log file = %q", string(raw))
	}
}

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range testCases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestWithAttrsOverridesByKey(t *testing.T) {
	ctx := WithAttrs(context.Background(), slog.String("command", "issue"), slog.String("app", "recetario"))
	ctx = WithAttrs(ctx, slog.String("command", "verify"))

	attrs := Attrs(ctx)
	if len(attrs) != 2 {
		t.Fatalf("Attrs() len = %d, want 2", len(attrs))
	}
	if attrs[0].Value.String() != "verify" {
		t.Fatalf("command attr = %q, want verify", attrs[0].Value.String())
	}
}
