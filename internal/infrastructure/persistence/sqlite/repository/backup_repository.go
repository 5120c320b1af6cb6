package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"recetario/internal/domain/backup"
	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/infrastructure/persistence/sqlite/model"
)

type BackupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

func (r *BackupRepository) AppendBackup(ctx context.Context, entry backup.Entry) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := model.Respaldo{
		ID:                   id,
		FechaRespaldo:        prescription.FormatTimestamp(entry.Fecha),
		TipoRespaldo:         string(entry.Kind),
		ArchivoRespaldo:      entry.Archivo,
		Estado:               string(entry.Status),
		RegistrosRespaldados: entry.Registros,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert respaldo")
	}
	return nil
}

func (r *BackupRepository) LatestAutomatic(ctx context.Context) (*time.Time, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var row model.Respaldo
	err = db.
		Where("tipo_respaldo = ? AND estado = ?", string(backup.KindAutomatico), string(backup.StatusExitoso)).
		Order("fecha_respaldo desc").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(err, "query latest automatic respaldo")
	}

	ts, err := prescription.ParseTimestamp(row.FechaRespaldo)
	if err != nil {
		return nil, errs.Wrap(err, "parse fecha_respaldo")
	}
	return &ts, nil
}

func (r *BackupRepository) ListBackups(ctx context.Context, limit int) ([]backup.Entry, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Respaldo{}).Order("fecha_respaldo desc").Order("rowid desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Respaldo
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query respaldos")
	}

	items := make([]backup.Entry, 0, len(rows))
	for _, row := range rows {
		ts, _ := prescription.ParseTimestamp(row.FechaRespaldo)
		items = append(items, backup.Entry{
			ID:        row.ID,
			Fecha:     ts,
			Kind:      backup.Kind(row.TipoRespaldo),
			Archivo:   row.ArchivoRespaldo,
			Status:    backup.Status(row.Estado),
			Registros: row.RegistrosRespaldados,
		})
	}
	return items, nil
}
