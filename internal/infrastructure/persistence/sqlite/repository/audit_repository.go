package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/infrastructure/persistence/sqlite/model"
	"recetario/internal/ports"
)

// AuditRepository appends to and reads from the audit and access logs.
// Rows are never updated or deleted.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) AppendAudit(ctx context.Context, event ports.AuditEvent) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := model.Auditoria{
		ID:           id,
		RecetaNumero: event.RecetaNumero,
		Accion:       string(event.Accion),
		Usuario:      event.Usuario,
		FechaHora:    prescription.FormatTimestamp(event.FechaHora),
		IPAddress:    event.IPAddress,
		Detalles:     event.Detalles,
		HashAnterior: event.HashAnterior,
		HashNuevo:    event.HashNuevo,
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert auditoria")
	}
	return nil
}

func (r *AuditRepository) AppendAccess(ctx context.Context, event ports.AccessEvent) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := model.BitacoraAcceso{
		ID:        id,
		Usuario:   event.Usuario,
		Accion:    string(event.Accion),
		FechaHora: prescription.FormatTimestamp(event.FechaHora),
		IPAddress: event.IPAddress,
		Detalles:  event.Detalles,
		Resultado: string(event.Resultado),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert bitacora_accesos")
	}
	return nil
}

func (r *AuditRepository) ListAudit(ctx context.Context, filter ports.AuditFilter) ([]ports.AuditEvent, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Auditoria{})
	if numero := strings.TrimSpace(filter.RecetaNumero); numero != "" {
		query = query.Where("receta_numero = ?", numero)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.Auditoria
	if err := query.Order("fecha_hora desc").Order("rowid desc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query auditoria")
	}

	items := make([]ports.AuditEvent, 0, len(rows))
	for _, row := range rows {
		ts, _ := prescription.ParseTimestamp(row.FechaHora)
		items = append(items, ports.AuditEvent{
			ID:           row.ID,
			RecetaNumero: row.RecetaNumero,
			Accion:       ports.AuditAction(row.Accion),
			Usuario:      row.Usuario,
			FechaHora:    ts,
			IPAddress:    row.IPAddress,
			Detalles:     row.Detalles,
			HashAnterior: row.HashAnterior,
			HashNuevo:    row.HashNuevo,
		})
	}
	return items, nil
}

func (r *AuditRepository) ListAccess(ctx context.Context, limit int) ([]ports.AccessEvent, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.BitacoraAcceso{}).Order("fecha_hora desc").Order("rowid desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.BitacoraAcceso
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query bitacora_accesos")
	}

	items := make([]ports.AccessEvent, 0, len(rows))
	for _, row := range rows {
		ts, _ := prescription.ParseTimestamp(row.FechaHora)
		items = append(items, ports.AccessEvent{
			ID:        row.ID,
			Usuario:   row.Usuario,
			Accion:    ports.AccessAction(row.Accion),
			FechaHora: ts,
			IPAddress: row.IPAddress,
			Detalles:  row.Detalles,
			Resultado: ports.AccessResult(row.Resultado),
		})
	}
	return items, nil
}
