package desk

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/catalog"
	"recetario/internal/domain/identity"
	"recetario/internal/errs"
	"recetario/internal/ports"
)

var (
	// ErrRender marks a document that failed to render after its record was
	// committed. The record stays valid and can be re-rendered.
	ErrRender = errors.New("document render failed")
	// ErrIntegrityMismatch is returned with a report that lists tampered records.
	ErrIntegrityMismatch = errors.New("integrity mismatch")
	// ErrDocumentMissing is returned when a record's rendered file is absent.
	ErrDocumentMissing = errors.New("rendered document not found")

	errSessionRequired = errors.New("an authenticated session is required")
)

// systemActor is recorded for events that happen before anyone logs in.
const systemActor = "USUARIO_SISTEMA"

// Settings are the configuration values the desk needs at runtime.
type Settings struct {
	Unit      string
	OutputDir string
	BackupDir string
}

// Dependencies lists everything the desk is built from. Viewer and KV are
// optional.
type Dependencies struct {
	UnitOfWork    ports.UnitOfWork
	Prescriptions ports.PrescriptionRepository
	Sequences     ports.SequenceRepository
	Audit         ports.AuditRepository
	Backups       ports.BackupRepository
	Snapshotter   ports.Snapshotter
	Renderer      ports.DocumentRenderer
	Viewer        ports.Viewer
	KV            ports.KeyValueStore
	Codes         *catalog.Codes
	Items         *catalog.Items
	Directory     *identity.Directory
	Settings      Settings
	Now           func() time.Time
	LocalIP       func() string
}

type Service struct {
	uow           ports.UnitOfWork
	prescriptions ports.PrescriptionRepository
	sequences     ports.SequenceRepository
	audit         ports.AuditRepository
	backups       ports.BackupRepository
	snapshotter   ports.Snapshotter
	renderer      ports.DocumentRenderer
	viewer        ports.Viewer
	kv            ports.KeyValueStore
	codes         *catalog.Codes
	items         *catalog.Items
	directory     *identity.Directory
	settings      Settings
	now           func() time.Time
	localIP       func() string
}

func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.UnitOfWork == nil:
		return nil, errors.New("unit of work is required")
	case deps.Prescriptions == nil:
		return nil, errors.New("prescription repository is required")
	case deps.Sequences == nil:
		return nil, errors.New("sequence repository is required")
	case deps.Audit == nil:
		return nil, errors.New("audit repository is required")
	case deps.Backups == nil:
		return nil, errors.New("backup repository is required")
	case deps.Snapshotter == nil:
		return nil, errors.New("snapshotter is required")
	case deps.Renderer == nil:
		return nil, errors.New("document renderer is required")
	case strings.TrimSpace(deps.Settings.OutputDir) == "":
		return nil, errors.New("output directory is required")
	}

	s := &Service{
		uow:           deps.UnitOfWork,
		prescriptions: deps.Prescriptions,
		sequences:     deps.Sequences,
		audit:         deps.Audit,
		backups:       deps.Backups,
		snapshotter:   deps.Snapshotter,
		renderer:      deps.Renderer,
		viewer:        deps.Viewer,
		kv:            deps.KV,
		codes:         deps.Codes,
		items:         deps.Items,
		directory:     deps.Directory,
		settings:      deps.Settings,
		now:           deps.Now,
		localIP:       deps.LocalIP,
	}
	if s.codes == nil {
		s.codes = catalog.DefaultCodes()
	}
	if s.items == nil {
		s.items = catalog.NewItems(nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.localIP == nil {
		s.localIP = func() string { return "127.0.0.1" }
	}
	return s, nil
}

// Session is an authenticated clinician together with the workstation
// address recorded on every event.
type Session struct {
	Identity  identity.Identity
	IPAddress string
}

// Actor is the name written to audit and access entries.
func (s Session) Actor() string {
	if name := strings.TrimSpace(s.Identity.DisplayName); name != "" {
		return name
	}
	return s.Identity.Username
}

func (s Session) valid() bool {
	return strings.TrimSpace(s.Identity.Username) != ""
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}

// recordAuditBestEffort appends an audit entry; a failure is logged and
// never returned.
func (s *Service) recordAuditBestEffort(ctx context.Context, event ports.AuditEvent) {
	if event.FechaHora.IsZero() {
		event.FechaHora = s.now()
	}
	if err := s.audit.AppendAudit(ctx, event); err != nil {
		logging.Warn(ctx, "audit entry dropped",
			slog.String("numero", event.RecetaNumero),
			slog.String("accion", string(event.Accion)),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

// recordAccessBestEffort appends an access-log entry; a failure is logged and
// never returned.
func (s *Service) recordAccessBestEffort(ctx context.Context, usuario string, action ports.AccessAction, detalles string, result ports.AccessResult) {
	event := ports.AccessEvent{
		Usuario:   usuario,
		Accion:    action,
		FechaHora: s.now(),
		IPAddress: s.localIP(),
		Detalles:  detalles,
		Resultado: result,
	}
	if err := s.audit.AppendAccess(ctx, event); err != nil {
		logging.Warn(ctx, "access entry dropped",
			slog.String("accion", string(action)),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

func (s *Service) setKVBestEffort(ctx context.Context, key string, value string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(ctx, key, value); err != nil {
		logging.Warn(ctx, "desk state not saved", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) logContext(ctx context.Context, operation string, session Session) context.Context {
	ctx = logging.WithAttrs(ctx, slog.String("component", "desk"), slog.String("op", operation))
	if session.valid() {
		ctx = logging.WithActor(ctx, session.Identity.Username)
	}
	return ctx
}
