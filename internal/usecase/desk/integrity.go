package desk

import (
	"context"
	"fmt"
	"log/slog"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/prescription"
	"recetario/internal/ports"
)

const (
	integrityPreviewSize = 10
	lastIntegrityKey     = "integridad.ultima_verificacion"
)

// IntegrityReport is the outcome of re-hashing every active record.
type IntegrityReport struct {
	Verified  int
	Corrupted []string
	Unhashed  []string
}

// Preview returns at most the first ten corrupted numbers and whether the
// list was cut.
func (r IntegrityReport) Preview() ([]string, bool) {
	if len(r.Corrupted) > integrityPreviewSize {
		return r.Corrupted[:integrityPreviewSize], true
	}
	return r.Corrupted, false
}

func (r IntegrityReport) Summary() string {
	s := fmt.Sprintf("Verificadas %d recetas, %d con problemas", r.Verified, len(r.Corrupted))
	if len(r.Unhashed) > 0 {
		s += fmt.Sprintf(", %d sin hash", len(r.Unhashed))
	}
	return s
}

// VerifyIntegrity recomputes the digest of every active record. When any
// record fails, the full report is returned together with
// ErrIntegrityMismatch. Records are never corrected.
func (s *Service) VerifyIntegrity(ctx context.Context, session Session) (IntegrityReport, error) {
	if err := checkContext(ctx); err != nil {
		return IntegrityReport{}, err
	}
	if !session.valid() {
		return IntegrityReport{}, errSessionRequired
	}
	logCtx := s.logContext(ctx, "verify", session)

	stored, err := s.prescriptions.ListByEstado(ctx, prescription.EstadoActiva)
	if err != nil {
		s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessVerificarIntegridad, "Error: "+err.Error(), ports.ResultError)
		return IntegrityReport{}, err
	}

	var report IntegrityReport
	for _, item := range stored {
		switch prescription.Verify(item.Record, item.Payload, item.Record.HashVerificacion) {
		case prescription.VerdictMatch:
			report.Verified++
		case prescription.VerdictUnhashed:
			report.Unhashed = append(report.Unhashed, item.Record.Numero)
		default:
			report.Corrupted = append(report.Corrupted, item.Record.Numero)
		}
	}

	summary := report.Summary()
	s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessVerificarIntegridad, summary, ports.ResultExitoso)
	s.setKVBestEffort(logCtx, lastIntegrityKey, prescription.FormatTimestamp(s.now())+" "+summary)

	if len(report.Corrupted) > 0 {
		logging.Warn(logCtx, "integrity mismatch", slog.Int("corrupted", len(report.Corrupted)))
		return report, fmt.Errorf("%w: %d records", ErrIntegrityMismatch, len(report.Corrupted))
	}
	logging.Info(logCtx, "integrity verified", slog.Int("verified", report.Verified))
	return report, nil
}

// LastIntegrityCheck returns the stamped summary of the previous verification.
func (s *Service) LastIntegrityCheck(ctx context.Context) (string, bool, error) {
	if err := checkContext(ctx); err != nil {
		return "", false, err
	}
	if s.kv == nil {
		return "", false, nil
	}
	return s.kv.Get(ctx, lastIntegrityKey)
}
