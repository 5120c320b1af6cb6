package desk

import (
	"context"

	"recetario/internal/domain/catalog"
	"recetario/internal/ports"
)

const defaultLogLimit = 100

// ListAccessLog returns the newest access entries; limit <= 0 means 100.
func (s *Service) ListAccessLog(ctx context.Context, session Session, limit int) ([]ports.AccessEvent, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if !session.valid() {
		return nil, errSessionRequired
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}

	events, err := s.audit.ListAccess(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.recordAccessBestEffort(s.logContext(ctx, "log.access", session), session.Actor(),
		ports.AccessVerBitacora, "Consulta de bitácora de accesos", ports.ResultExitoso)
	return events, nil
}

// ListAuditLog returns the newest audit entries, optionally for one number.
func (s *Service) ListAuditLog(ctx context.Context, session Session, filter ports.AuditFilter) ([]ports.AuditEvent, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if !session.valid() {
		return nil, errSessionRequired
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLogLimit
	}

	events, err := s.audit.ListAudit(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.recordAccessBestEffort(s.logContext(ctx, "log.audit", session), session.Actor(),
		ports.AccessVerAuditoria, "Consulta de auditoría de recetas", ports.ResultExitoso)
	return events, nil
}

func (s *Service) SearchCodes(query string, limit int) []catalog.Entry {
	return s.codes.Search(query, limit)
}

func (s *Service) SearchItems(query string, limit int) []string {
	return s.items.Search(query, limit)
}
