package schema

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/infrastructure/persistence/sqlite/model"
)

// Version is bumped whenever a column or table is added.
const Version = "2"

// SeedCounter is the stored value of a fresh sequence; the first number
// issued for each tipo ends in 000000.
const SeedCounter int64 = -1

// Tables lists every table the store owns, in creation order.
func Tables() []any {
	return []any{
		&model.Secuencia{},
		&model.Receta{},
		&model.Auditoria{},
		&model.BitacoraAcceso{},
		&model.Respaldo{},
		&Meta{},
	}
}

// Initialize creates missing tables, adds missing columns and indexes to
// existing ones and seeds the sequence counters. Existing columns and rows are
// never altered, so it is safe on stores written by older versions.
func Initialize(ctx context.Context, db *gorm.DB) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if db == nil {
		return errors.New("db is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "persistence.schema"))

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range Tables() {
			if err := ensureTable(logCtx, tx, table); err != nil {
				return err
			}
		}

		seeds := make([]model.Secuencia, 0, len(prescription.Tipos()))
		for _, tipo := range prescription.Tipos() {
			seeds = append(seeds, model.Secuencia{Tipo: string(tipo), Ultimo: SeedCounter})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seeds).Error; err != nil {
			return errs.Wrap(err, "seed sequences")
		}

		meta := Meta{Key: "schema_version", Value: Version, UpdatedAt: prescription.FormatTimestamp(time.Now())}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&meta).Error; err != nil {
			return errs.Wrap(err, "record schema version")
		}

		logging.Info(logCtx, "schema initialized", slog.String("version", Version))
		return nil
	})
}

func ensureTable(ctx context.Context, tx *gorm.DB, table any) error {
	migrator := tx.Migrator()
	if !migrator.HasTable(table) {
		if err := migrator.CreateTable(table); err != nil {
			return errs.Wrapf(err, "create table for %T", table)
		}
		return nil
	}

	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(table); err != nil {
		return errs.Wrapf(err, "parse model %T", table)
	}

	for _, field := range stmt.Schema.Fields {
		if field.DBName == "" || migrator.HasColumn(table, field.DBName) {
			continue
		}
		// SQLite cannot add key or unique columns to an existing table.
		if field.PrimaryKey || field.Unique {
			logging.Warn(ctx, "skipping non-additive column", slog.String("table", stmt.Schema.Table), slog.String("column", field.DBName))
			continue
		}
		if err := migrator.AddColumn(table, field.DBName); err != nil {
			return errs.Wrapf(err, "add column %s.%s", stmt.Schema.Table, field.DBName)
		}
		logging.Info(ctx, "column added", slog.String("table", stmt.Schema.Table), slog.String("column", field.DBName))
	}

	for _, idx := range stmt.Schema.ParseIndexes() {
		if migrator.HasIndex(table, idx.Name) {
			continue
		}
		if err := migrator.CreateIndex(table, idx.Name); err != nil {
			return errs.Wrapf(err, "create index %s", idx.Name)
		}
	}

	return nil
}
