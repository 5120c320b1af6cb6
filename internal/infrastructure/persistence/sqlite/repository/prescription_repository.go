package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/infrastructure/persistence/sqlite/model"
	"recetario/internal/ports"
)

type PrescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

func (r *PrescriptionRepository) InsertRecord(ctx context.Context, rec prescription.Record, payload []byte) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	row := toRecetaRow(rec, payload)
	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return errs.Wrapf(ports.ErrDuplicateNumber, "numero %s", rec.Numero)
		}
		return errs.Wrap(err, "insert receta")
	}
	return nil
}

func (r *PrescriptionRepository) FindByNumber(ctx context.Context, numero string) (ports.StoredPrescription, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.StoredPrescription{}, err
	}

	var row model.Receta
	if err := db.Where("numero = ?", strings.TrimSpace(numero)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.StoredPrescription{}, errs.Wrapf(ports.ErrRecordNotFound, "numero %s", numero)
		}
		return ports.StoredPrescription{}, errs.Wrap(err, "query receta")
	}

	return ports.StoredPrescription{
		Record:  withPayloadMeds(fromRecetaRow(row), row.Payload),
		Payload: []byte(row.Payload),
	}, nil
}

func (r *PrescriptionRepository) ListForExport(ctx context.Context) ([]prescription.Record, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Receta
	if err := db.Order("created_at desc").Order("numero desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query recetas for export")
	}

	items := make([]prescription.Record, 0, len(rows))
	for _, row := range rows {
		items = append(items, fromRecetaRow(row))
	}
	return items, nil
}

func (r *PrescriptionRepository) ListByEstado(ctx context.Context, estado prescription.Estado) ([]ports.StoredPrescription, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Receta{})
	if estado == prescription.EstadoActiva {
		// Legacy rows predating the estado column read as NULL.
		query = query.Where("estado = ? OR estado IS NULL", string(estado))
	} else {
		query = query.Where("estado = ?", string(estado))
	}

	var rows []model.Receta
	if err := query.Order("numero asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query recetas by estado")
	}

	items := make([]ports.StoredPrescription, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.StoredPrescription{
			Record:  fromRecetaRow(row),
			Payload: []byte(row.Payload),
		})
	}
	return items, nil
}

func (r *PrescriptionRepository) UpdateEstado(ctx context.Context, numero string, estado prescription.Estado, note string) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	entry := fmt.Sprintf("[%s] %s", prescription.FormatTimestamp(time.Now()), strings.TrimSpace(note))
	result := db.Model(&model.Receta{}).
		Where("numero = ?", numero).
		Updates(map[string]any{
			"estado": string(estado),
			"modificaciones": gorm.Expr(
				"CASE WHEN modificaciones IS NULL OR modificaciones = '' THEN ? ELSE modificaciones || char(10) || ? END",
				entry, entry,
			),
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "update receta estado")
	}
	if result.RowsAffected == 0 {
		return errs.Wrapf(ports.ErrRecordNotFound, "numero %s", numero)
	}
	return nil
}

func (r *PrescriptionRepository) UpdatePDFPath(ctx context.Context, numero string, path string) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	result := db.Model(&model.Receta{}).Where("numero = ?", numero).Update("pdf_path", path)
	if result.Error != nil {
		return errs.Wrap(result.Error, "update receta pdf_path")
	}
	if result.RowsAffected == 0 {
		return errs.Wrapf(ports.ErrRecordNotFound, "numero %s", numero)
	}
	return nil
}

func (r *PrescriptionRepository) Count(ctx context.Context) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Receta{}).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count recetas")
	}
	return count, nil
}
