package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"recetario/internal/errs"
	"recetario/internal/infrastructure/persistence/schema"
	"recetario/internal/infrastructure/persistence/sqlite/model"
)

func TestSnapshotCopiesCommittedState(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "recetas.db")

	db, err := gorm.Open(gormsqlite.Open(src), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := schema.Initialize(ctx, db); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := db.Model(&model.Secuencia{}).Where("tipo = ?", "EM").Update("ultimo", 12).Error; err != nil {
		t.Fatalf("update sequence: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backups", "recetas_backup_20250304_090000.db")
	if err := NewSnapshotter(db, src).Snapshot(ctx, dest); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	copyDB, err := gorm.Open(gormsqlite.Open(dest), &gorm.Config{})
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	copySQL, _ := copyDB.DB()
	t.Cleanup(func() { _ = copySQL.Close() })

	var row model.Secuencia
	if err := copyDB.Where("tipo = ?", "EM").Take(&row).Error; err != nil {
		t.Fatalf("query snapshot: %v", err)
	}
	if row.Ultimo != 12 {
		t.Fatalf("snapshot EM sequence = %d, want 12", row.Ultimo)
	}
}

func TestSnapshotRejectsInMemoryStore(t *testing.T) {
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = NewSnapshotter(db, ":memory:").Snapshot(context.Background(), filepath.Join(t.TempDir(), "x.db"))
	if !errors.Is(err, ErrNoBackingFile) {
		t.Fatalf("Snapshot() error = %v, want ErrNoBackingFile", err)
	}
}

func TestSnapshotKeepsExistingDestination(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "recetas.db")

	db, err := gorm.Open(gormsqlite.Open(src), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := schema.Initialize(ctx, db); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	dir := t.TempDir()
	dest := filepath.Join(dir, "recetas_backup_20250304_090000.db")
	if err := os.WriteFile(dest, []byte("EARLIER SNAPSHOT"), 0o644); err != nil {
		t.Fatalf("write earlier snapshot: %v", err)
	}

	err = NewSnapshotter(db, src).Snapshot(ctx, dest)
	if !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("Snapshot() error = %v, want ErrDestinationExists", err)
	}
	var se *errs.StackError
	if !errors.As(err, &se) {
		t.Fatalf("Snapshot() error should carry a stack trace")
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(got) != "EARLIER SNAPSHOT" {
		t.Fatalf("destination = %q, earlier snapshot was replaced", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("backup dir has %d entries, temporary file left behind", len(entries))
	}
}
