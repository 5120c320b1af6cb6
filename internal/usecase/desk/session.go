package desk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/identity"
	"recetario/internal/ports"
)

// Start records that the desk was launched. It runs before any login.
func (s *Service) Start(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	s.recordAccessBestEffort(ctx, systemActor, ports.AccessInicioAplicacion, "Aplicación iniciada", ports.ResultExitoso)
	return nil
}

// Login authenticates against the roster directory. Both outcomes are written
// to the access log.
func (s *Service) Login(ctx context.Context, username, credential string) (Session, error) {
	if err := checkContext(ctx); err != nil {
		return Session{}, err
	}
	logCtx := s.logContext(ctx, "login", Session{})

	id, err := s.directory.Authenticate(username, credential)
	if err != nil {
		actor := identity.NormalizeText(username)
		if actor == "" {
			actor = systemActor
		}
		s.recordAccessBestEffort(logCtx, actor, ports.AccessLogin, "Credenciales inválidas", ports.ResultFallido)
		logging.Warn(logCtx, "login rejected", slog.String("username", actor))
		return Session{}, err
	}

	session := Session{Identity: id, IPAddress: s.localIP()}
	allowed := make([]string, 0, len(id.Role.AllowedTipos()))
	for _, t := range id.Role.AllowedTipos() {
		allowed = append(allowed, string(t))
	}
	s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessLogin,
		fmt.Sprintf("Rol: %s - Esp: %s - Tipos: %s", id.Role, id.Especialidad, strings.Join(allowed, ",")),
		ports.ResultExitoso)
	logging.Info(logging.WithActor(logCtx, id.Username), "login accepted", slog.String("role", string(id.Role)))
	return session, nil
}
