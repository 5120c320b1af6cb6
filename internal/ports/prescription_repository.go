package ports

import (
	"context"
	"errors"

	"recetario/internal/domain/prescription"
)

var (
	ErrRecordNotFound   = errors.New("receta no encontrada")
	ErrDuplicateNumber  = errors.New("número de receta duplicado")
	ErrUnknownTipo      = errors.New("tipo de receta sin secuencia")
	ErrRecordNotUpdated = errors.New("receta no actualizada")
)

// StoredPrescription is a record as read back from the store together with
// its stored canonical payload.
type StoredPrescription struct {
	Record  prescription.Record
	Payload []byte
}

type PrescriptionRepository interface {
	// InsertRecord stores the record and its payload; ErrDuplicateNumber when
	// numero is taken.
	InsertRecord(ctx context.Context, rec prescription.Record, payload []byte) error
	FindByNumber(ctx context.Context, numero string) (StoredPrescription, error)
	// ListForExport returns every record, newest first.
	ListForExport(ctx context.Context) ([]prescription.Record, error)
	ListByEstado(ctx context.Context, estado prescription.Estado) ([]StoredPrescription, error)
	// UpdateEstado changes the lifecycle marker and appends note to modificaciones.
	UpdateEstado(ctx context.Context, numero string, estado prescription.Estado, note string) error
	UpdatePDFPath(ctx context.Context, numero string, path string) error
	Count(ctx context.Context) (int64, error)
}

type SequenceRepository interface {
	// Next increments the counter for tipo and returns the new value.
	Next(ctx context.Context, tipo prescription.Tipo) (int64, error)
	Current(ctx context.Context, tipo prescription.Tipo) (int64, error)
}
