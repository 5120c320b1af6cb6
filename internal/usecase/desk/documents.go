package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/document"
	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/ports"
)

// ErrDocumentExists is returned instead of replacing a rendered file.
var ErrDocumentExists = errors.New("document already exists")

// DocumentInfo is a looked-up record with its rendered file and the outcome
// of re-checking its digest.
type DocumentInfo struct {
	Record  prescription.Record
	Path    string
	Verdict prescription.Verdict
}

// OpenDocument looks a record up by number and, when launch is set, hands
// its rendered file to the system viewer.
func (s *Service) OpenDocument(ctx context.Context, session Session, numero string, launch bool) (DocumentInfo, error) {
	if err := checkContext(ctx); err != nil {
		return DocumentInfo{}, err
	}
	if !session.valid() {
		return DocumentInfo{}, errSessionRequired
	}
	numero = strings.ToUpper(strings.TrimSpace(numero))
	logCtx := logging.WithAttrs(s.logContext(ctx, "open", session), slog.String("numero", numero))

	stored, err := s.prescriptions.FindByNumber(ctx, numero)
	if err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessBuscarReceta,
				fmt.Sprintf("Receta %s no encontrada", numero), ports.ResultNoEncontrado)
			return DocumentInfo{}, err
		}
		s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessBuscarReceta, "Error: "+err.Error(), ports.ResultError)
		return DocumentInfo{}, err
	}

	info := DocumentInfo{
		Record:  stored.Record,
		Path:    s.pathFor(stored.Record),
		Verdict: prescription.Verify(stored.Record, stored.Payload, stored.Record.HashVerificacion),
	}
	if _, err := os.Stat(info.Path); err != nil {
		return info, errs.Wrapf(ErrDocumentMissing, "path %s", info.Path)
	}

	s.recordAuditBestEffort(logCtx, ports.AuditEvent{
		RecetaNumero: numero,
		Accion:       ports.AuditConsulta,
		Usuario:      session.Actor(),
		IPAddress:    session.IPAddress,
		Detalles:     "PDF consultado desde " + session.IPAddress,
	})
	s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessAbrirPDF,
		fmt.Sprintf("PDF %s abierto", numero), ports.ResultExitoso)

	if launch && s.viewer != nil {
		if err := s.viewer.Open(ctx, info.Path); err != nil {
			logging.Warn(logCtx, "viewer could not be started", slog.Any("err", errs.Loggable(err)))
		}
	}
	return info, nil
}

// RenderDocument re-renders a stored record whose file is missing. An
// existing file is never replaced.
func (s *Service) RenderDocument(ctx context.Context, session Session, numero string) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	if !session.valid() {
		return "", errSessionRequired
	}
	numero = strings.ToUpper(strings.TrimSpace(numero))
	logCtx := logging.WithAttrs(s.logContext(ctx, "render", session), slog.String("numero", numero))

	stored, err := s.prescriptions.FindByNumber(ctx, numero)
	if err != nil {
		return "", err
	}

	path := s.pathFor(stored.Record)
	if _, err := os.Stat(path); err == nil {
		return path, errs.Wrapf(ErrDocumentExists, "path %s", path)
	}

	if err := s.renderer.RenderPrescription(ctx, document.Assemble(stored.Record), path); err != nil {
		logging.Error(logCtx, "prescription document not rendered", slog.Any("err", errs.Loggable(err)))
		return "", fmt.Errorf("%w: %s: %w", ErrRender, numero, err)
	}
	if stored.Record.PDFPath != path {
		if err := s.prescriptions.UpdatePDFPath(ctx, numero, path); err != nil {
			return path, err
		}
	}

	s.recordAuditBestEffort(logCtx, ports.AuditEvent{
		RecetaNumero: numero,
		Accion:       ports.AuditRenderizado,
		Usuario:      session.Actor(),
		IPAddress:    session.IPAddress,
		Detalles:     "Documento regenerado en " + path,
		HashAnterior: stored.Record.HashVerificacion,
		HashNuevo:    stored.Record.HashVerificacion,
	})
	return path, nil
}

// RenderInstructions writes the separate indications hand-out for a record.
func (s *Service) RenderInstructions(ctx context.Context, session Session, numero string) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}
	if !session.valid() {
		return "", errSessionRequired
	}
	numero = strings.ToUpper(strings.TrimSpace(numero))
	logCtx := logging.WithAttrs(s.logContext(ctx, "instructions", session), slog.String("numero", numero))

	stored, err := s.prescriptions.FindByNumber(ctx, numero)
	if err != nil {
		return "", err
	}

	path := s.instructionsPath(numero)
	if _, err := os.Stat(path); err == nil {
		return path, errs.Wrapf(ErrDocumentExists, "path %s", path)
	}
	if err := s.renderer.RenderInstructions(ctx, document.AssembleInstructions(stored.Record), path); err != nil {
		logging.Error(logCtx, "instructions not rendered", slog.Any("err", errs.Loggable(err)))
		return "", fmt.Errorf("%w: %s: %w", ErrRender, numero, err)
	}

	s.recordAuditBestEffort(logCtx, ports.AuditEvent{
		RecetaNumero: numero,
		Accion:       ports.AuditRenderizado,
		Usuario:      session.Actor(),
		IPAddress:    session.IPAddress,
		Detalles:     "Indicaciones generadas en " + path,
	})
	return path, nil
}

func (s *Service) pathFor(rec prescription.Record) string {
	if strings.TrimSpace(rec.PDFPath) != "" {
		return rec.PDFPath
	}
	return s.documentPath(rec.Numero)
}
