package ports

import (
	"context"
	"time"

	"recetario/internal/domain/backup"
)

type BackupRepository interface {
	AppendBackup(ctx context.Context, entry backup.Entry) error
	// LatestAutomatic returns the time of the newest successful automatic
	// snapshot, or nil when there is none.
	LatestAutomatic(ctx context.Context) (*time.Time, error)
	ListBackups(ctx context.Context, limit int) ([]backup.Entry, error)
}

// Snapshotter copies the live store file to dest once pending writes are
// flushed.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}
