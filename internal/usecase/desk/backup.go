package desk

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/backup"
	"recetario/internal/errs"
	"recetario/internal/ports"
)

// RunBackup snapshots the store into the backup directory and records the
// attempt in the manifest, whether it succeeded or not.
func (s *Service) RunBackup(ctx context.Context, actor string, kind backup.Kind) (backup.Entry, error) {
	if err := checkContext(ctx); err != nil {
		return backup.Entry{}, err
	}
	if actor == "" {
		actor = systemActor
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "desk"), slog.String("op", "backup"), slog.String("kind", string(kind)))

	now := s.now()
	entry := backup.Entry{
		Fecha:   now,
		Kind:    kind,
		Archivo: filepath.Join(s.settings.BackupDir, backup.FileName(now)),
		Status:  backup.StatusExitoso,
	}

	runErr := s.snapshot(ctx, &entry)
	if runErr != nil {
		entry.Status = backup.StatusFallido
		logging.Error(logCtx, "backup failed", slog.Any("err", errs.Loggable(runErr)))
	}

	if err := s.backups.AppendBackup(ctx, entry); err != nil {
		logging.Warn(logCtx, "backup manifest entry dropped", slog.Any("err", errs.Loggable(err)))
	}

	detalles := "Respaldo manual creado"
	if kind == backup.KindAutomatico {
		detalles = "Respaldo automático creado"
	}
	result := ports.ResultExitoso
	if runErr != nil {
		detalles = "Error: " + runErr.Error()
		result = ports.ResultError
	}
	s.recordAccessBestEffort(logCtx, actor, ports.AccessCrearRespaldo, detalles, result)

	if runErr != nil {
		return entry, runErr
	}
	logging.Info(logCtx, "backup written", slog.String("file", entry.Archivo), slog.Int64("records", entry.Registros))
	return entry, nil
}

func (s *Service) snapshot(ctx context.Context, entry *backup.Entry) error {
	if s.settings.BackupDir == "" {
		return errors.New("backup directory is not configured")
	}
	count, err := s.prescriptions.Count(ctx)
	if err != nil {
		return err
	}
	entry.Registros = count
	return s.snapshotter.Snapshot(ctx, entry.Archivo)
}

// RunAutomaticBackupIfDue takes an automatic snapshot when none has
// succeeded in the last whole day. It reports whether one was attempted.
func (s *Service) RunAutomaticBackupIfDue(ctx context.Context) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}

	last, err := s.backups.LatestAutomatic(ctx)
	if err != nil {
		return false, err
	}
	if !backup.ShouldRunAutomatic(last, s.now()) {
		return false, nil
	}
	_, err = s.RunBackup(ctx, systemActor, backup.KindAutomatico)
	return true, err
}

// ListBackups returns the manifest, newest first.
func (s *Service) ListBackups(ctx context.Context, limit int) ([]backup.Entry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return s.backups.ListBackups(ctx, limit)
}
