package auditconsole

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"recetario/internal/domain/identity"
	"recetario/internal/ports"
	"recetario/internal/usecase/desk"
)

type stubDesk struct {
	audit       []ports.AuditEvent
	access      []ports.AccessEvent
	report      desk.IntegrityReport
	verifyErr   error
	lastCheck   string
	auditFilter ports.AuditFilter
	verifyCalls int
}

func (s *stubDesk) ListAuditLog(_ context.Context, _ desk.Session, filter ports.AuditFilter) ([]ports.AuditEvent, error) {
	s.auditFilter = filter
	return s.audit, nil
}

func (s *stubDesk) ListAccessLog(context.Context, desk.Session, int) ([]ports.AccessEvent, error) {
	return s.access, nil
}

func (s *stubDesk) VerifyIntegrity(context.Context, desk.Session) (desk.IntegrityReport, error) {
	s.verifyCalls++
	return s.report, s.verifyErr
}

func (s *stubDesk) LastIntegrityCheck(context.Context) (string, bool, error) {
	return s.lastCheck, s.lastCheck != "", nil
}

func newTestModel(stub *stubDesk, options Options) *consoleModel {
	if options.Session.Identity.Username == "" {
		options.Session = desk.Session{
			Identity:  identity.Identity{Username: "jcpg", DisplayName: "Juan Carlos Pérez Gómez"},
			IPAddress: "10.0.0.5",
		}
	}
	return NewConsoleModel(context.Background(), stub, options).(*consoleModel)
}

// run executes cmd and feeds every produced message back into the model.
func run(t *testing.T, m *consoleModel, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, inner := range batch {
			run(t, m, inner)
		}
		return
	}
	if msg == nil {
		return
	}
	_, next := m.Update(msg)
	if _, isQuit := msg.(tea.QuitMsg); isQuit {
		return
	}
	run(t, m, next)
}

func key(value string) tea.KeyMsg {
	switch value {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(value)}
	}
}

func TestConsoleLoadsBothLogsOnInit(t *testing.T) {
	stub := &stubDesk{
		audit: []ports.AuditEvent{
			{RecetaNumero: "CE-2025-000001", Accion: ports.AuditCreacion, Usuario: "jcpg", Detalles: "Receta creada", HashNuevo: "abc"},
		},
		access: []ports.AccessEvent{
			{Usuario: "jcpg", Accion: ports.AccessLogin, Resultado: ports.ResultExitoso},
			{Usuario: "USUARIO_SISTEMA", Accion: ports.AccessInicioAplicacion, Resultado: ports.ResultExitoso},
		},
		lastCheck: "2025-03-04T09:30:00.000000Z Verificadas 1 recetas, 0 con problemas",
	}
	m := newTestModel(stub, Options{Numero: " ce-2025-000001 "})
	run(t, m, m.Init())

	if len(m.auditEvents) != 1 || len(m.accessEvents) != 2 {
		t.Fatalf("loaded audit=%d access=%d", len(m.auditEvents), len(m.accessEvents))
	}
	if stub.auditFilter.RecetaNumero != "CE-2025-000001" || stub.auditFilter.Limit != defaultLimit {
		t.Fatalf("audit filter = %+v", stub.auditFilter)
	}

	view := m.View()
	for _, want := range []string{"CE-2025-000001", "CREACION", "Hash nuevo: abc"} {
		if !strings.Contains(view, want) {
			t.Fatalf("View() missing %q:\n%s", want, view)
		}
	}

	m.Update(key("tab"))
	if m.active != tabAccess {
		t.Fatalf("active tab = %d, want access", m.active)
	}
	if !strings.Contains(m.View(), "INICIO_APLICACION") {
		t.Fatalf("access view missing startup entry:\n%s", m.View())
	}
}

func TestConsoleVerifyShowsCorruptedPreview(t *testing.T) {
	report := desk.IntegrityReport{Verified: 4}
	for i := 0; i < 12; i++ {
		report.Corrupted = append(report.Corrupted, fmt.Sprintf("EM-2025-%06d", i))
	}
	stub := &stubDesk{report: report, verifyErr: fmt.Errorf("%w: 12 records", desk.ErrIntegrityMismatch)}
	m := newTestModel(stub, Options{})

	_, cmd := m.Update(key("v"))
	if m.active != tabIntegrity {
		t.Fatalf("verify should switch to the integrity tab")
	}
	run(t, m, cmd)

	if stub.verifyCalls != 1 || !m.hasReport {
		t.Fatalf("verify calls = %d hasReport = %v", stub.verifyCalls, m.hasReport)
	}
	view := m.View()
	if !strings.Contains(view, "Con problemas: 12") || !strings.Contains(view, "EM-2025-000009") {
		t.Fatalf("View() missing corrupted list:\n%s", view)
	}
	if strings.Contains(view, "EM-2025-000010") || !strings.Contains(view, "y 2 más") {
		t.Fatalf("View() should cut the list at ten:\n%s", view)
	}
}

func TestConsoleVerifyFailureKeepsPreviousReport(t *testing.T) {
	stub := &stubDesk{verifyErr: errors.New("database is locked")}
	m := newTestModel(stub, Options{})

	_, cmd := m.Update(key("v"))
	run(t, m, cmd)
	if m.hasReport {
		t.Fatalf("a failed verification must not produce a report")
	}
	if !strings.Contains(m.status, "database is locked") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestConsoleSelectionStaysInRange(t *testing.T) {
	stub := &stubDesk{audit: make([]ports.AuditEvent, 3)}
	m := newTestModel(stub, Options{})
	run(t, m, m.loadAuditCmd())

	for i := 0; i < 5; i++ {
		m.Update(key("j"))
	}
	if m.selectedIndex != 2 {
		t.Fatalf("selectedIndex = %d, want 2", m.selectedIndex)
	}
	for i := 0; i < 5; i++ {
		m.Update(key("up"))
	}
	if m.selectedIndex != 0 {
		t.Fatalf("selectedIndex = %d, want 0", m.selectedIndex)
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatalf("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("q should produce tea.QuitMsg")
	}
}

func TestWindowKeepsSelectionVisible(t *testing.T) {
	testCases := []struct {
		total, selected, size int
		wantStart, wantEnd    int
	}{
		{total: 5, selected: 4, size: 10, wantStart: 0, wantEnd: 5},
		{total: 40, selected: 0, size: 10, wantStart: 0, wantEnd: 10},
		{total: 40, selected: 20, size: 10, wantStart: 15, wantEnd: 25},
		{total: 40, selected: 39, size: 10, wantStart: 30, wantEnd: 40},
	}
	for _, testCase := range testCases {
		start, end := window(testCase.total, testCase.selected, testCase.size)
		if start != testCase.wantStart || end != testCase.wantEnd {
			t.Fatalf("window(%d, %d, %d) = %d, %d", testCase.total, testCase.selected, testCase.size, start, end)
		}
	}
}

func TestClipUsesFirstLine(t *testing.T) {
	if got := clip("\n  primera  \nsegunda"); got != "primera" {
		t.Fatalf("clip() = %q", got)
	}
	long := strings.Repeat("á", maxDetailChars+5)
	if got := clip(long); len([]rune(got)) != maxDetailChars || !strings.HasSuffix(got, "...") {
		t.Fatalf("clip(long) has %d runes", len([]rune(got)))
	}
}

func TestTickDisabledByDefault(t *testing.T) {
	m := newTestModel(&stubDesk{}, Options{})
	if m.tickCmd() != nil {
		t.Fatalf("tickCmd() should be nil without a refresh interval")
	}
	m = newTestModel(&stubDesk{}, Options{RefreshInterval: time.Minute})
	if m.tickCmd() == nil {
		t.Fatalf("tickCmd() should be set with a refresh interval")
	}
}
