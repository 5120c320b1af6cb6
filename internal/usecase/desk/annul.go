package desk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/ports"
)

// AnnulRecord marks an active record ANULADA. The record is kept and its
// digest still verifies; the reason is appended to its modification notes.
func (s *Service) AnnulRecord(ctx context.Context, session Session, numero, reason string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !session.valid() {
		return errSessionRequired
	}
	numero = strings.ToUpper(strings.TrimSpace(numero))
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return prescription.AsError([]prescription.Violation{{Field: "motivo", Message: "Falta: motivo de anulación"}})
	}
	logCtx := logging.WithAttrs(s.logContext(ctx, "annul", session), slog.String("numero", numero))

	var hash string
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		stored, err := s.prescriptions.FindByNumber(txCtx, numero)
		if err != nil {
			return err
		}
		if stored.Record.Estado == prescription.EstadoAnulada {
			return errs.Wrapf(prescription.ErrAlreadyAnulled, "numero %s", numero)
		}
		if err := session.Identity.CheckTipo(stored.Record.Tipo); err != nil {
			return err
		}
		hash = stored.Record.HashVerificacion

		note := fmt.Sprintf("ANULADA por %s: %s", session.Actor(), reason)
		return s.prescriptions.UpdateEstado(txCtx, numero, prescription.EstadoAnulada, note)
	}); err != nil {
		s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessAnularReceta,
			fmt.Sprintf("Receta %s: %v", numero, err), ports.ResultFallido)
		return err
	}

	s.recordAuditBestEffort(logCtx, ports.AuditEvent{
		RecetaNumero: numero,
		Accion:       ports.AuditAnulacion,
		Usuario:      session.Actor(),
		IPAddress:    session.IPAddress,
		Detalles:     reason,
		HashAnterior: hash,
		HashNuevo:    hash,
	})
	s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessAnularReceta,
		fmt.Sprintf("Receta %s anulada", numero), ports.ResultExitoso)
	logging.Info(logCtx, "prescription annulled")
	return nil
}
