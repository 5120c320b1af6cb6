package desk

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/document"
	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/ports"
)

type IssueResult struct {
	Record  prescription.Record
	PDFPath string
}

// NextNumber allocates the next number for tipo. Inside a unit of work the
// allocation commits or rolls back with it.
func (s *Service) NextNumber(ctx context.Context, tipo prescription.Tipo) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	counter, err := s.sequences.Next(ctx, tipo)
	if err != nil {
		return "", err
	}
	return prescription.FormatNumber(tipo, s.now().Year(), counter), nil
}

// PeekNumber shows the number the next issuance of tipo would receive
// without consuming it.
func (s *Service) PeekNumber(ctx context.Context, tipo prescription.Tipo) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	current, err := s.sequences.Current(ctx, tipo)
	if err != nil {
		return "", err
	}
	return prescription.FormatNumber(tipo, s.now().Year(), current+1), nil
}

// Issue validates the form, allocates a number and stores the hashed record
// in one transaction, then renders the document. A render failure after
// commit returns the committed record with an ErrRender error.
func (s *Service) Issue(ctx context.Context, session Session, form prescription.Form) (IssueResult, error) {
	if err := checkContext(ctx); err != nil {
		return IssueResult{}, err
	}
	if !session.valid() {
		return IssueResult{}, errSessionRequired
	}
	logCtx := s.logContext(ctx, "issue", session)

	rec, violations := form.Record()
	rec.Prescriptor = session.Actor()
	rec.PrescriptorEspecialidad = session.Identity.Especialidad
	rec.Unidad = s.settings.Unit
	if desc, ok := s.codes.Describe(rec.CIE); ok {
		rec.CIEDesc = desc
	}

	violations = append(violations, prescription.Validate(rec)...)
	if err := prescription.AsError(violations); err != nil {
		logging.Warn(logCtx, "prescription rejected", slog.Int("violations", len(violations)))
		return IssueResult{}, err
	}
	if err := session.Identity.CheckTipo(rec.Tipo); err != nil {
		s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessCrearReceta, err.Error(), ports.ResultFallido)
		return IssueResult{}, err
	}

	now := s.now()
	rec.ID = uuid.NewString()
	rec.Fecha = prescription.FormatFecha(now)
	rec.CreatedAt = now.UTC().Truncate(time.Microsecond)
	rec.CreatedBy = session.Actor()
	rec.IPAddress = session.IPAddress
	rec.Estado = prescription.EstadoActiva

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		numero, err := s.NextNumber(txCtx, rec.Tipo)
		if err != nil {
			return err
		}
		rec.Numero = numero
		rec.PDFPath = s.documentPath(numero)

		hash, err := rec.ContentHash()
		if err != nil {
			return errs.Wrap(err, "hash record")
		}
		payload, err := rec.CanonicalJSON()
		if err != nil {
			return errs.Wrap(err, "encode payload")
		}
		rec.HashVerificacion = hash
		return s.prescriptions.InsertRecord(txCtx, rec, payload)
	}); err != nil {
		s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessCrearReceta, "Error: "+err.Error(), ports.ResultError)
		logging.Error(logCtx, "prescription not stored", slog.Any("err", errs.Loggable(err)))
		return IssueResult{}, err
	}

	logCtx = logging.WithAttrs(logCtx, slog.String("numero", rec.Numero))
	s.recordAuditBestEffort(logCtx, ports.AuditEvent{
		RecetaNumero: rec.Numero,
		Accion:       ports.AuditCreacion,
		Usuario:      session.Actor(),
		IPAddress:    session.IPAddress,
		Detalles:     "Receta creada para paciente " + rec.Paciente,
		HashNuevo:    rec.HashVerificacion,
	})
	s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessCrearReceta,
		fmt.Sprintf("Receta %s creada exitosamente", rec.Numero), ports.ResultExitoso)
	logging.Info(logCtx, "prescription stored", slog.String("tipo", string(rec.Tipo)))

	result := IssueResult{Record: rec, PDFPath: rec.PDFPath}
	if err := s.renderer.RenderPrescription(ctx, document.Assemble(rec), rec.PDFPath); err != nil {
		logging.Error(logCtx, "prescription document not rendered", slog.Any("err", errs.Loggable(err)))
		return result, fmt.Errorf("%w: %s: %w", ErrRender, rec.Numero, err)
	}
	return result, nil
}

func (s *Service) documentPath(numero string) string {
	return filepath.Join(s.settings.OutputDir, numero+".pdf")
}

func (s *Service) instructionsPath(numero string) string {
	return filepath.Join(s.settings.OutputDir, numero+"_indicaciones.pdf")
}
