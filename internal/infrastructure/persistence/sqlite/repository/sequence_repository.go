package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/infrastructure/persistence/sqlite/model"
	"recetario/internal/ports"
)

type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next increments before reading so the write lock is held for the whole
// allocation. Outside a unit of work it opens its own transaction.
func (r *SequenceRepository) Next(ctx context.Context, tipo prescription.Tipo) (int64, error) {
	if ports.TxFromContext(ctx) != nil {
		db, err := dbFromContext(ctx, r.db)
		if err != nil {
			return 0, err
		}

		result := db.Model(&model.Secuencia{}).
			Where("tipo = ?", string(tipo)).
			Update("ultimo", gorm.Expr("ultimo + 1"))
		if result.Error != nil {
			return 0, errs.Wrap(result.Error, "increment sequence")
		}
		if result.RowsAffected == 0 {
			return 0, errs.Wrapf(ports.ErrUnknownTipo, "tipo %q", tipo)
		}

		var row model.Secuencia
		if err := db.Where("tipo = ?", string(tipo)).Take(&row).Error; err != nil {
			return 0, errs.Wrap(err, "read sequence")
		}
		return row.Ultimo, nil
	}

	var next int64
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		value, err := r.Next(ports.WithTxContext(ctx, tx), tipo)
		if err != nil {
			return err
		}
		next = value
		return nil
	}); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *SequenceRepository) Current(ctx context.Context, tipo prescription.Tipo) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var row model.Secuencia
	if err := db.Where("tipo = ?", string(tipo)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errs.Wrapf(ports.ErrUnknownTipo, "tipo %q", tipo)
		}
		return 0, errs.Wrap(err, "read sequence")
	}
	return row.Ultimo, nil
}
