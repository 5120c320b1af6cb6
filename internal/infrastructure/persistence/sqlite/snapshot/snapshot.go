package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
)

var (
	ErrNoBackingFile     = errors.New("store has no backing file")
	ErrDestinationExists = errors.New("snapshot destination already exists")
)

// Snapshotter copies the SQLite store file while holding its write lock.
type Snapshotter struct {
	db   *gorm.DB
	path string
}

func NewSnapshotter(db *gorm.DB, path string) *Snapshotter {
	return &Snapshotter{db: db, path: path}
}

// Snapshot checkpoints the WAL, then copies the store file to dest inside a
// write transaction so no other writer can modify it mid-copy. The copy is
// written to a temporary file and linked into place; an existing dest is
// never replaced.
func (s *Snapshotter) Snapshot(ctx context.Context, dest string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.path == "" || filepath.Base(s.path) == ":memory:" {
		return ErrNoBackingFile
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "persistence.snapshot"))

	if err := s.db.WithContext(ctx).Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		logging.Warn(logCtx, "wal checkpoint failed", slog.Any("err", errs.Loggable(err)))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A write statement takes the RESERVED lock even when it matches nothing.
		if err := tx.Exec("UPDATE secuencias SET ultimo = ultimo WHERE 1 = 0").Error; err != nil {
			return errs.Wrap(err, "acquire write lock")
		}

		if err := copyFile(s.path, dest); err != nil {
			return errs.WithStack(err)
		}

		logging.Info(logCtx, "store snapshot written", slog.String("dest", dest))
		return nil
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return errs.Wrapf(err, "open store file %q", src)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errs.Wrapf(err, "create backup directory %q", filepath.Dir(dest))
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return errs.Wrap(err, "create temporary snapshot")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return errs.Wrap(err, "copy store file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errs.Wrap(err, "sync snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, "close snapshot")
	}
	if err := os.Link(tmpName, dest); err != nil {
		if errors.Is(err, os.ErrExist) {
			return errs.Wrapf(ErrDestinationExists, "path %s", dest)
		}
		return errs.Wrap(err, "move snapshot into place")
	}
	return nil
}
