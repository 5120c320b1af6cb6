package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"recetario/internal/bootstrap/config"
	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
)

// ErrStoreUnavailable is returned when neither the primary nor the fallback
// location could be opened.
var ErrStoreUnavailable = errors.New("store unavailable")

// Location describes where the store actually lives after Open.
type Location struct {
	Path     string
	Fallback bool
}

// InMemory reports whether the store has no backing file.
func (l Location) InMemory() bool {
	return l.Path == "" || strings.Contains(l.Path, ":memory:")
}

func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, Location, error) {
	if ctx == nil {
		return nil, Location{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, Location{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.database"))

	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3", "":
	default:
		return nil, Location{}, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	primary := config.ExpandHome(cfg.DSN)
	db, err := openSQLite(logCtx, primary, cfg.BusyTimeoutMS)
	if err == nil {
		return db, Location{Path: sqlitePath(primary)}, nil
	}

	fallback := config.ExpandHome(cfg.FallbackDSN)
	if fallback == "" || fallback == primary {
		return nil, Location{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	logging.Warn(
		logCtx,
		"primary store location unavailable, using fallback",
		slog.String("dsn", primary),
		slog.String("fallback_dsn", fallback),
		slog.Any("err", errs.Loggable(err)),
	)

	db, fallbackErr := openSQLite(logCtx, fallback, cfg.BusyTimeoutMS)
	if fallbackErr != nil {
		return nil, Location{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, errors.Join(err, fallbackErr))
	}

	return db, Location{Path: sqlitePath(fallback), Fallback: true}, nil
}

func openSQLite(ctx context.Context, dsn string, busyTimeoutMS int) (*gorm.DB, error) {
	if err := ensureSQLiteDirectory(ctx, dsn); err != nil {
		return nil, errs.Wrap(err, "ensure sqlite directory")
	}

	db, err := gorm.Open(gormsqlite.Open(withPragmas(dsn, busyTimeoutMS)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errs.Wrap(err, "open sqlite db")
	}

	// The driver connects lazily; touch the file so permission problems surface here.
	if err := db.WithContext(ctx).Exec("PRAGMA user_version").Error; err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, errs.WithStack(errs.Wrap(err, "probe sqlite db"))
	}

	logging.Info(ctx, "database opened", slog.String("driver", "sqlite"), slog.String("dsn", dsn))
	return db, nil
}

func withPragmas(dsn string, busyTimeoutMS int) string {
	if busyTimeoutMS <= 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, busyTimeoutMS)
}

func sqlitePath(dsn string) string {
	candidate := strings.TrimSpace(dsn)
	if strings.HasPrefix(strings.ToLower(candidate), "file:") {
		candidate = candidate[len("file:"):]
	}
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	return candidate
}

func ensureSQLiteDirectory(ctx context.Context, dsn string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	candidate := sqlitePath(dsn)
	if candidate == "" || strings.Contains(candidate, ":memory:") {
		return nil
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrapf(err, "create sqlite directory %q", dir)
	}

	logging.Info(ctx, "sqlite directory ensured", slog.String("dir", dir))
	return nil
}
