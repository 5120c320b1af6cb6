package desk

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"recetario/internal/domain/backup"
	"recetario/internal/domain/catalog"
	"recetario/internal/domain/document"
	"recetario/internal/domain/identity"
	"recetario/internal/domain/prescription"
	"recetario/internal/infrastructure/persistence/schema"
	"recetario/internal/infrastructure/persistence/sqlite/kvstore"
	"recetario/internal/infrastructure/persistence/sqlite/model"
	"recetario/internal/infrastructure/persistence/sqlite/repository"
	"recetario/internal/infrastructure/persistence/sqlite/uow"
	"recetario/internal/ports"
)

type fakeRenderer struct {
	mu   sync.Mutex
	fail error
	docs []document.Prescription
}

func (r *fakeRenderer) RenderPrescription(_ context.Context, doc document.Prescription, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.docs = append(r.docs, doc)
	return writeStub(path)
}

func (r *fakeRenderer) RenderInstructions(_ context.Context, _ document.Instructions, path string) error {
	if r.fail != nil {
		return r.fail
	}
	return writeStub(path)
}

func writeStub(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("%PDF-stub"), 0o644)
}

type fakeSnapshotter struct {
	fail  error
	dests []string
}

func (s *fakeSnapshotter) Snapshot(_ context.Context, dest string) error {
	if s.fail != nil {
		return s.fail
	}
	s.dests = append(s.dests, dest)
	return writeStub(dest)
}

type fakeViewer struct {
	opened []string
}

func (v *fakeViewer) Open(_ context.Context, path string) error {
	v.opened = append(v.opened, path)
	return nil
}

type failingAudit struct {
	ports.AuditRepository
}

func (failingAudit) AppendAudit(context.Context, ports.AuditEvent) error {
	return errors.New("audit table locked")
}

func (failingAudit) AppendAccess(context.Context, ports.AccessEvent) error {
	return errors.New("access table locked")
}

type testDesk struct {
	svc         *Service
	db          *gorm.DB
	renderer    *fakeRenderer
	snapshotter *fakeSnapshotter
	viewer      *fakeViewer
	audit       *repository.AuditRepository
	clock       *time.Time
	outputDir   string
}

func newTestDesk(t *testing.T, override func(*Dependencies)) *testDesk {
	t.Helper()

	root := t.TempDir()
	db, err := gorm.Open(gormsqlite.Open(filepath.Join(root, "recetas.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := schema.Initialize(context.Background(), db); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	clock := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
	td := &testDesk{
		db:          db,
		renderer:    &fakeRenderer{},
		snapshotter: &fakeSnapshotter{},
		viewer:      &fakeViewer{},
		audit:       repository.NewAuditRepository(db),
		clock:       &clock,
		outputDir:   filepath.Join(root, "recetas_pdf"),
	}

	deps := Dependencies{
		UnitOfWork:    uow.NewUnitOfWork(db),
		Prescriptions: repository.NewPrescriptionRepository(db),
		Sequences:     repository.NewSequenceRepository(db),
		Audit:         td.audit,
		Backups:       repository.NewBackupRepository(db),
		Snapshotter:   td.snapshotter,
		Renderer:      td.renderer,
		Viewer:        td.viewer,
		KV:            kvstore.NewStore(db),
		Codes:         catalog.DefaultCodes(),
		Items:         catalog.NewItems([]string{"Losartan 50 mg", "Paracetamol 500 mg"}),
		Directory: identity.BuildDirectory([]identity.RosterEntry{
			{Nombres: "Juan Carlos", Apellidos: "Pérez Gómez", Cedula: "0102030405", Especialidad: "Medicina Interna"},
			{Nombres: "Lucía", Apellidos: "Andrade Vega", Cedula: "1711111111", Rol: "RESIDENTE"},
		}),
		Settings: Settings{
			Unit:      "HOSPITAL BÁSICO DE CAYAMBE",
			OutputDir: td.outputDir,
			BackupDir: filepath.Join(root, "backups"),
		},
		Now:     func() time.Time { return *td.clock },
		LocalIP: func() string { return "10.0.0.5" },
	}
	if override != nil {
		override(&deps)
	}

	svc, err := NewService(deps)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	td.svc = svc
	return td
}

func (td *testDesk) login(t *testing.T, username, credential string) Session {
	t.Helper()
	session, err := td.svc.Login(context.Background(), username, credential)
	if err != nil {
		t.Fatalf("Login(%s) error = %v", username, err)
	}
	return session
}

func sampleForm(tipo string) prescription.Form {
	return prescription.Form{
		Tipo:         tipo,
		Paciente:     "Ana López",
		CI:           "17123 45678",
		CIE:          "i10",
		CIEDesc:      "presion alta",
		Indicaciones: "Dieta hiposódica",
		Edad:         int64(54),
		Peso:         "68,5",
		Meds:         []prescription.Medication{{Nombre: "Losartan 50 mg", Dosis: "1 tab", Frecuencia: "QD"}},
	}
}

func TestIssueAssignsSequentialNumbers(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()
	session := td.login(t, "jcpg", "0102030405")

	for i, want := range []string{"CE-2025-000000", "CE-2025-000001", "CE-2025-000002"} {
		result, err := td.svc.Issue(ctx, session, sampleForm("ce"))
		if err != nil {
			t.Fatalf("Issue(%d) error = %v", i, err)
		}
		if result.Record.Numero != want {
			t.Fatalf("Issue(%d) numero = %s, want %s", i, result.Record.Numero, want)
		}
		if result.PDFPath != filepath.Join(td.outputDir, want+".pdf") {
			t.Fatalf("Issue(%d) path = %s", i, result.PDFPath)
		}
		if _, err := os.Stat(result.PDFPath); err != nil {
			t.Fatalf("rendered file missing: %v", err)
		}
	}

	stored, err := repository.NewPrescriptionRepository(td.db).FindByNumber(ctx, "CE-2025-000001")
	if err != nil {
		t.Fatalf("FindByNumber() error = %v", err)
	}
	rec := stored.Record
	if rec.Prescriptor != "Juan Carlos Pérez Gómez" || rec.PrescriptorEspecialidad != "MEDICINA INTERNA" {
		t.Fatalf("prescriptor = %q / %q", rec.Prescriptor, rec.PrescriptorEspecialidad)
	}
	if rec.CI != "1712345678" || rec.Fecha != "04/03/2025" || rec.IPAddress != "10.0.0.5" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.CIEDesc != "Hipertensión esencial (primaria)" {
		t.Fatalf("CIEDesc = %q, want catalog description", rec.CIEDesc)
	}
	if rec.Peso == nil || *rec.Peso != 68.5 {
		t.Fatalf("Peso = %v", rec.Peso)
	}
	if got := prescription.Verify(rec, stored.Payload, rec.HashVerificacion); got != prescription.VerdictMatch {
		t.Fatalf("Verify() = %s, want MATCH", got)
	}

	events, err := td.audit.ListAudit(ctx, ports.AuditFilter{RecetaNumero: "CE-2025-000001"})
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if len(events) != 1 || events[0].Accion != ports.AuditCreacion || events[0].HashNuevo != rec.HashVerificacion {
		t.Fatalf("audit events = %+v", events)
	}

	next, err := td.svc.PeekNumber(ctx, prescription.TipoConsultaExterna)
	if err != nil || next != "CE-2025-000003" {
		t.Fatalf("PeekNumber() = %q, %v", next, err)
	}
}

func TestIssueRejectsInvalidFormWithoutConsumingNumber(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()
	session := td.login(t, "jcpg", "0102030405")

	form := sampleForm("CE")
	form.Paciente = ""
	form.CI = "12345"
	form.Edad = "abc"
	form.Meds = nil

	_, err := td.svc.Issue(ctx, session, form)
	if !errors.Is(err, prescription.ErrValidation) {
		t.Fatalf("Issue() error = %v, want ErrValidation", err)
	}
	var verr *prescription.ValidationError
	if !errors.As(err, &verr) || len(verr.Violations) < 4 {
		t.Fatalf("violations = %+v", verr)
	}

	current, err := repository.NewSequenceRepository(td.db).Current(ctx, prescription.TipoConsultaExterna)
	if err != nil || current != schema.SeedCounter {
		t.Fatalf("Current() = %d, %v; want untouched seed", current, err)
	}
}

func TestIssueEnforcesRole(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()
	resident := td.login(t, "lav", "1711111111")

	if _, err := td.svc.Issue(ctx, resident, sampleForm("CE")); !errors.Is(err, identity.ErrTipoNotPermitted) {
		t.Fatalf("Issue(CE by resident) error = %v, want ErrTipoNotPermitted", err)
	}
	result, err := td.svc.Issue(ctx, resident, sampleForm("EM"))
	if err != nil {
		t.Fatalf("Issue(EM by resident) error = %v", err)
	}
	if result.Record.Numero != "EM-2025-000000" || result.Record.PrescriptorEspecialidad != identity.DefaultSpecialty {
		t.Fatalf("record = %s / %s", result.Record.Numero, result.Record.PrescriptorEspecialidad)
	}

	if _, err := td.svc.Issue(ctx, Session{}, sampleForm("EM")); err == nil {
		t.Fatalf("Issue() without session should fail")
	}
}

func TestIssueKeepsRecordWhenRenderFails(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()
	session := td.login(t, "jcpg", "0102030405")

	td.renderer.fail = errors.New("disk full")
	result, err := td.svc.Issue(ctx, session, sampleForm("EH"))
	if !errors.Is(err, ErrRender) {
		t.Fatalf("Issue() error = %v, want ErrRender", err)
	}
	if result.Record.Numero != "EH-2025-000000" {
		t.Fatalf("committed numero = %q", result.Record.Numero)
	}
	if _, err := repository.NewPrescriptionRepository(td.db).FindByNumber(ctx, "EH-2025-000000"); err != nil {
		t.Fatalf("record should stay committed: %v", err)
	}

	td.renderer.fail = nil
	path, err := td.svc.RenderDocument(ctx, session, "eh-2025-000000")
	if err != nil {
		t.Fatalf("RenderDocument() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("re-rendered file missing: %v", err)
	}
	if _, err := td.svc.RenderDocument(ctx, session, "EH-2025-000000"); !errors.Is(err, ErrDocumentExists) {
		t.Fatalf("RenderDocument(existing) error = %v, want ErrDocumentExists", err)
	}

	instructions, err := td.svc.RenderInstructions(ctx, session, "EH-2025-000000")
	if err != nil {
		t.Fatalf("RenderInstructions() error = %v", err)
	}
	if filepath.Base(instructions) != "EH-2025-000000_indicaciones.pdf" {
		t.Fatalf("instructions path = %s", instructions)
	}

	events, _ := td.audit.ListAudit(ctx, ports.AuditFilter{RecetaNumero: "EH-2025-000000"})
	if len(events) != 3 || events[0].Accion != ports.AuditRenderizado {
		t.Fatalf("audit events = %+v", events)
	}
}

func TestOpenDocument(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()
	session := td.login(t, "jcpg", "0102030405")

	if _, err := td.svc.OpenDocument(ctx, session, "CE-2025-000099", true); !errors.Is(err, ports.ErrRecordNotFound) {
		t.Fatalf("OpenDocument(missing) error = %v", err)
	}
	access, _ := td.audit.ListAccess(ctx, 1)
	if len(access) != 1 || access[0].Resultado != ports.ResultNoEncontrado {
		t.Fatalf("access = %+v", access)
	}

	issued, err := td.svc.Issue(ctx, session, sampleForm("CE"))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	info, err := td.svc.OpenDocument(ctx, session, issued.Record.Numero, true)
	if err != nil {
		t.Fatalf("OpenDocument() error = %v", err)
	}
	if info.Verdict != prescription.VerdictMatch || info.Path != issued.PDFPath {
		t.Fatalf("info = %+v", info)
	}
	if len(td.viewer.opened) != 1 || td.viewer.opened[0] != issued.PDFPath {
		t.Fatalf("viewer opened = %v", td.viewer.opened)
	}

	events, _ := td.audit.ListAudit(ctx, ports.AuditFilter{RecetaNumero: issued.Record.Numero})
	if len(events) != 2 || events[0].Accion != ports.AuditConsulta {
		t.Fatalf("audit events = %+v", events)
	}
}

func TestAnnulRecordKeepsDigestValid(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()
	session := td.login(t, "jcpg", "0102030405")

	issued, err := td.svc.Issue(ctx, session, sampleForm("CE"))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	numero := issued.Record.Numero

	if err := td.svc.AnnulRecord(ctx, session, numero, " "); !errors.Is(err, prescription.ErrValidation) {
		t.Fatalf("AnnulRecord(no reason) error = %v", err)
	}
	if err := td.svc.AnnulRecord(ctx, session, numero, "Paciente equivocado"); err != nil {
		t.Fatalf("AnnulRecord() error = %v", err)
	}
	if err := td.svc.AnnulRecord(ctx, session, numero, "otra vez"); !errors.Is(err, prescription.ErrAlreadyAnulled) {
		t.Fatalf("AnnulRecord(twice) error = %v", err)
	}

	stored, err := repository.NewPrescriptionRepository(td.db).FindByNumber(ctx, numero)
	if err != nil {
		t.Fatalf("FindByNumber() error = %v", err)
	}
	if stored.Record.Estado != prescription.EstadoAnulada {
		t.Fatalf("estado = %s", stored.Record.Estado)
	}
	if got := prescription.Verify(stored.Record, stored.Payload, stored.Record.HashVerificacion); got != prescription.VerdictMatch {
		t.Fatalf("Verify(annulled) = %s, want MATCH", got)
	}

	events, _ := td.audit.ListAudit(ctx, ports.AuditFilter{RecetaNumero: numero})
	if events[0].Accion != ports.AuditAnulacion || events[0].HashAnterior != events[0].HashNuevo {
		t.Fatalf("annul audit = %+v", events[0])
	}
}

func TestVerifyIntegrityReportsTamperingAndUnhashed(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()
	session := td.login(t, "jcpg", "0102030405")

	var numeros []string
	for i := 0; i < 3; i++ {
		issued, err := td.svc.Issue(ctx, session, sampleForm("CE"))
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		numeros = append(numeros, issued.Record.Numero)
	}

	report, err := td.svc.VerifyIntegrity(ctx, session)
	if err != nil || report.Verified != 3 {
		t.Fatalf("VerifyIntegrity(clean) = %+v, %v", report, err)
	}

	if err := td.db.Model(&model.Receta{}).Where("numero = ?", numeros[1]).Update("paciente", "Otra Persona").Error; err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if err := td.db.Create(&model.Receta{ID: "legacy", Numero: "CE-2024-000500", Tipo: "CE"}).Error; err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	report, err = td.svc.VerifyIntegrity(ctx, session)
	if !errors.Is(err, ErrIntegrityMismatch) {
		t.Fatalf("VerifyIntegrity() error = %v, want ErrIntegrityMismatch", err)
	}
	if report.Verified != 2 || len(report.Corrupted) != 1 || report.Corrupted[0] != numeros[1] {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Unhashed) != 1 || report.Unhashed[0] != "CE-2024-000500" {
		t.Fatalf("unhashed = %v", report.Unhashed)
	}

	last, found, err := td.svc.LastIntegrityCheck(ctx)
	if err != nil || !found || last == "" {
		t.Fatalf("LastIntegrityCheck() = %q, %v, %v", last, found, err)
	}
}

func TestIntegrityReportPreview(t *testing.T) {
	report := IntegrityReport{}
	for i := 0; i < 12; i++ {
		report.Corrupted = append(report.Corrupted, prescription.FormatNumber(prescription.TipoEmergencia, 2025, int64(i)))
	}
	preview, more := report.Preview()
	if len(preview) != 10 || !more {
		t.Fatalf("Preview() = %d, %v", len(preview), more)
	}
}

func TestExportCSVNewestFirst(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()
	session := td.login(t, "jcpg", "0102030405")

	for i := 0; i < 2; i++ {
		if _, err := td.svc.Issue(ctx, session, sampleForm("CE")); err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		*td.clock = td.clock.Add(time.Minute)
	}

	result, err := td.svc.ExportCSV(ctx, session, "")
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}
	if result.Rows != 2 {
		t.Fatalf("ExportCSV() rows = %d", result.Rows)
	}

	file, err := os.Open(result.Path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "numero" || rows[1][0] != "CE-2025-000001" || rows[2][0] != "CE-2025-000000" {
		t.Fatalf("export rows = %v", rows)
	}

	if _, err := td.svc.ExportCSV(ctx, session, result.Path); err == nil {
		t.Fatalf("ExportCSV(existing path) should fail")
	}
}

func TestRunAutomaticBackupIfDue(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()

	ran, err := td.svc.RunAutomaticBackupIfDue(ctx)
	if err != nil || !ran {
		t.Fatalf("first RunAutomaticBackupIfDue() = %v, %v", ran, err)
	}
	if len(td.snapshotter.dests) != 1 || filepath.Base(td.snapshotter.dests[0]) != "recetas_backup_20250304_093000.db" {
		t.Fatalf("snapshots = %v", td.snapshotter.dests)
	}

	*td.clock = td.clock.Add(23 * time.Hour)
	if ran, err := td.svc.RunAutomaticBackupIfDue(ctx); err != nil || ran {
		t.Fatalf("RunAutomaticBackupIfDue(+23h) = %v, %v", ran, err)
	}

	*td.clock = td.clock.Add(time.Hour)
	td.snapshotter.fail = errors.New("permission denied")
	if ran, err := td.svc.RunAutomaticBackupIfDue(ctx); err == nil || !ran {
		t.Fatalf("RunAutomaticBackupIfDue(failing) = %v, %v", ran, err)
	}

	td.snapshotter.fail = nil
	*td.clock = td.clock.Add(time.Minute)
	if ran, err := td.svc.RunAutomaticBackupIfDue(ctx); err != nil || !ran {
		t.Fatalf("RunAutomaticBackupIfDue(retry) = %v, %v", ran, err)
	}

	entries, err := td.svc.ListBackups(ctx, 0)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(entries) != 3 || entries[1].Status != backup.StatusFallido || entries[0].Status != backup.StatusExitoso {
		t.Fatalf("manifest = %+v", entries)
	}
}

func TestLoginRecordsBothOutcomes(t *testing.T) {
	td := newTestDesk(t, nil)
	ctx := context.Background()

	if err := td.svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := td.svc.Login(ctx, "jcpg", "wrong"); !errors.Is(err, identity.ErrAuthenticationFailed) {
		t.Fatalf("Login(wrong) error = %v", err)
	}
	*td.clock = td.clock.Add(time.Second)
	td.login(t, "JCPG", "0102030405")

	session := td.login(t, "jcpg", "0102030405")
	events, err := td.svc.ListAccessLog(ctx, session, 0)
	if err != nil {
		t.Fatalf("ListAccessLog() error = %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("access events = %d, want 4", len(events))
	}
	last := events[len(events)-1]
	if last.Accion != ports.AccessInicioAplicacion || last.Usuario != systemActor {
		t.Fatalf("oldest access = %+v", last)
	}
	if events[len(events)-2].Resultado != ports.ResultFallido {
		t.Fatalf("failed login not recorded: %+v", events[len(events)-2])
	}
}

func TestAuditFailuresDoNotBlockIssue(t *testing.T) {
	td := newTestDesk(t, func(deps *Dependencies) {
		deps.Audit = failingAudit{AuditRepository: deps.Audit}
	})
	ctx := context.Background()
	session := td.login(t, "jcpg", "0102030405")

	result, err := td.svc.Issue(ctx, session, sampleForm("CE"))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if result.Record.Numero != "CE-2025-000000" {
		t.Fatalf("numero = %s", result.Record.Numero)
	}
}

func TestSearchCatalogs(t *testing.T) {
	td := newTestDesk(t, nil)

	if got := td.svc.SearchCodes("r5", 5); len(got) != 2 || got[0].Code != "R50.9" {
		t.Fatalf("SearchCodes() = %+v", got)
	}
	if got := td.svc.SearchItems("para", 5); len(got) != 1 || got[0] != "Paracetamol 500 mg" {
		t.Fatalf("SearchItems() = %v", got)
	}
}
