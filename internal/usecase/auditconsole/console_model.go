package auditconsole

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
	"recetario/internal/ports"
	"recetario/internal/usecase/desk"
)

const (
	maxDetailChars = 160
	defaultLimit   = 100
	visibleRows    = 15
)

type tab int

const (
	tabAudit tab = iota
	tabAccess
	tabIntegrity
)

var tabTitles = []string{"Auditoría", "Accesos", "Integridad"}

// Desk is the part of the prescription desk the console reads from.
type Desk interface {
	ListAuditLog(ctx context.Context, session desk.Session, filter ports.AuditFilter) ([]ports.AuditEvent, error)
	ListAccessLog(ctx context.Context, session desk.Session, limit int) ([]ports.AccessEvent, error)
	VerifyIntegrity(ctx context.Context, session desk.Session) (desk.IntegrityReport, error)
	LastIntegrityCheck(ctx context.Context) (string, bool, error)
}

type Options struct {
	Session desk.Session
	// Numero restricts the audit tab to one prescription.
	Numero string
	Limit  int
	// RefreshInterval enables periodic reloads when positive. Each reload is
	// itself written to the access log.
	RefreshInterval time.Duration
}

type consoleModel struct {
	ctx             context.Context
	desk            Desk
	session         desk.Session
	numero          string
	limit           int
	refreshInterval time.Duration

	active        tab
	auditEvents   []ports.AuditEvent
	accessEvents  []ports.AccessEvent
	report        desk.IntegrityReport
	hasReport     bool
	lastCheck     string
	selectedIndex int
	status        string
}

type auditLoadedMsg struct {
	events []ports.AuditEvent
	err    error
}

type accessLoadedMsg struct {
	events []ports.AccessEvent
	err    error
}

type lastCheckLoadedMsg struct {
	summary string
	found   bool
	err     error
}

type verifyDoneMsg struct {
	report desk.IntegrityReport
	err    error
}

type tickMsg struct{}

func NewConsoleModel(ctx context.Context, service Desk, options Options) tea.Model {
	limit := options.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return &consoleModel{
		ctx:             ctx,
		desk:            service,
		session:         options.Session,
		numero:          strings.ToUpper(strings.TrimSpace(options.Numero)),
		limit:           limit,
		refreshInterval: options.RefreshInterval,
		status:          "cargando",
	}
}

func (m *consoleModel) Init() tea.Cmd {
	return tea.Batch(m.loadAuditCmd(), m.loadAccessCmd(), m.loadLastCheckCmd(), m.tickCmd())
}

func (m *consoleModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.reloadActiveCmd(), m.tickCmd())
	case auditLoadedMsg:
		if msg.err != nil {
			m.status = "error al cargar auditoría: " + msg.err.Error()
			return m, nil
		}
		m.auditEvents = msg.events
		m.clampSelection()
		m.status = fmt.Sprintf("auditoría: %d registros", len(m.auditEvents))
		return m, nil
	case accessLoadedMsg:
		if msg.err != nil {
			m.status = "error al cargar accesos: " + msg.err.Error()
			return m, nil
		}
		m.accessEvents = msg.events
		m.clampSelection()
		if m.active == tabAccess {
			m.status = fmt.Sprintf("accesos: %d registros", len(m.accessEvents))
		}
		return m, nil
	case lastCheckLoadedMsg:
		if msg.err != nil {
			m.status = "error al leer la última verificación: " + msg.err.Error()
			return m, nil
		}
		if msg.found {
			m.lastCheck = msg.summary
		}
		return m, nil
	case verifyDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, desk.ErrIntegrityMismatch) {
			m.status = "verificación fallida: " + msg.err.Error()
			return m, nil
		}
		m.report = msg.report
		m.hasReport = true
		m.status = msg.report.Summary()
		logging.Info(m.ctx, "integrity checked from console",
			slog.Int("verified", msg.report.Verified),
			slog.Int("corrupted", len(msg.report.Corrupted)),
		)
		return m, tea.Batch(m.loadLastCheckCmd(), m.loadAccessCmd())
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.switchTab((m.active + 1) % tab(len(tabTitles)))
			return m, nil
		case "shift+tab", "left", "h":
			m.switchTab((m.active + tab(len(tabTitles)) - 1) % tab(len(tabTitles)))
			return m, nil
		case "1", "2", "3":
			m.switchTab(tab(msg.String()[0] - '1'))
			return m, nil
		case "g":
			m.status = "actualizando"
			return m, m.reloadActiveCmd()
		case "v":
			m.switchTab(tabIntegrity)
			m.status = "verificando integridad..."
			return m, m.verifyCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < m.rowCount()-1 {
				m.selectedIndex++
			}
			return m, nil
		}
	}
	return m, nil
}

func (m *consoleModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	activeTabStyle := lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("39"))
	alertStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Consola de auditoría"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"usuario=%s ip=%s receta=%s límite=%d",
		firstNonEmpty(m.session.Actor(), "-"),
		firstNonEmpty(m.session.IPAddress, "-"),
		firstNonEmpty(m.numero, "todas"),
		m.limit,
	)))
	builder.WriteString("\n\n")

	titles := make([]string, 0, len(tabTitles))
	for index, title := range tabTitles {
		label := fmt.Sprintf("%d %s", index+1, title)
		if tab(index) == m.active {
			titles = append(titles, activeTabStyle.Render(label))
		} else {
			titles = append(titles, dimStyle.Render(label))
		}
	}
	builder.WriteString(strings.Join(titles, "  "))
	builder.WriteString("\n\n")

	switch m.active {
	case tabAudit:
		builder.WriteString(sectionStyle.Render("Eventos de recetas"))
		builder.WriteString("\n")
		lines := make([]string, 0, len(m.auditEvents))
		for _, event := range m.auditEvents {
			lines = append(lines, formatAuditLine(event))
		}
		m.writeRows(&builder, lines, selectedStyle, dimStyle)
		if event, ok := m.selectedAudit(); ok {
			builder.WriteString("\n")
			builder.WriteString(sectionStyle.Render("Detalle"))
			builder.WriteString("\n")
			builder.WriteString(fmt.Sprintf("Detalles: %s\n", firstNonEmpty(event.Detalles, "-")))
			builder.WriteString(fmt.Sprintf("Hash anterior: %s\n", firstNonEmpty(event.HashAnterior, "-")))
			builder.WriteString(fmt.Sprintf("Hash nuevo: %s\n", firstNonEmpty(event.HashNuevo, "-")))
		}
	case tabAccess:
		builder.WriteString(sectionStyle.Render("Bitácora de accesos"))
		builder.WriteString("\n")
		lines := make([]string, 0, len(m.accessEvents))
		for _, event := range m.accessEvents {
			lines = append(lines, formatAccessLine(event))
		}
		m.writeRows(&builder, lines, selectedStyle, dimStyle)
	case tabIntegrity:
		builder.WriteString(sectionStyle.Render("Integridad"))
		builder.WriteString("\n")
		builder.WriteString(fmt.Sprintf("Última verificación: %s\n", firstNonEmpty(m.lastCheck, "nunca")))
		if !m.hasReport {
			builder.WriteString(dimStyle.Render("- pulse v para verificar"))
			builder.WriteString("\n")
			break
		}
		builder.WriteString(fmt.Sprintf("Verificadas: %d\n", m.report.Verified))
		builder.WriteString(fmt.Sprintf("Sin hash: %d\n", len(m.report.Unhashed)))
		if len(m.report.Corrupted) == 0 {
			builder.WriteString("Con problemas: 0\n")
			break
		}
		builder.WriteString(alertStyle.Render(fmt.Sprintf("Con problemas: %d", len(m.report.Corrupted))))
		builder.WriteString("\n")
		preview, more := m.report.Preview()
		for _, numero := range preview {
			builder.WriteString("- " + numero + "\n")
		}
		if more {
			builder.WriteString(dimStyle.Render(fmt.Sprintf("... y %d más", len(m.report.Corrupted)-len(preview))))
			builder.WriteString("\n")
		}
	}
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Estado"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "listo"))
	builder.WriteString("\n\n")

	builder.WriteString(dimStyle.Render("Teclas: tab/1-3 pestaña  ↑/k ↓/j mover  g actualizar  v verificar  q salir"))
	return builder.String()
}

func (m *consoleModel) writeRows(builder *strings.Builder, lines []string, selectedStyle lipgloss.Style, dimStyle lipgloss.Style) {
	if len(lines) == 0 {
		builder.WriteString(dimStyle.Render("- sin registros"))
		builder.WriteString("\n")
		return
	}
	start, end := window(len(lines), m.selectedIndex, visibleRows)
	for index := start; index < end; index++ {
		if index == m.selectedIndex {
			builder.WriteString(selectedStyle.Render("> " + lines[index]))
		} else {
			builder.WriteString("  " + lines[index])
		}
		builder.WriteString("\n")
	}
	if end-start < len(lines) {
		builder.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d de %d", start+1, end, len(lines))))
		builder.WriteString("\n")
	}
}

func (m *consoleModel) tickCmd() tea.Cmd {
	if m.refreshInterval <= 0 {
		return nil
	}
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *consoleModel) reloadActiveCmd() tea.Cmd {
	switch m.active {
	case tabAccess:
		return m.loadAccessCmd()
	case tabIntegrity:
		return m.loadLastCheckCmd()
	default:
		return m.loadAuditCmd()
	}
}

func (m *consoleModel) loadAuditCmd() tea.Cmd {
	return func() tea.Msg {
		events, err := m.desk.ListAuditLog(m.ctx, m.session, ports.AuditFilter{RecetaNumero: m.numero, Limit: m.limit})
		if err != nil {
			m.logFailure("audit", err)
			return auditLoadedMsg{err: err}
		}
		return auditLoadedMsg{events: events}
	}
}

func (m *consoleModel) loadAccessCmd() tea.Cmd {
	return func() tea.Msg {
		events, err := m.desk.ListAccessLog(m.ctx, m.session, m.limit)
		if err != nil {
			m.logFailure("access", err)
			return accessLoadedMsg{err: err}
		}
		return accessLoadedMsg{events: events}
	}
}

func (m *consoleModel) loadLastCheckCmd() tea.Cmd {
	return func() tea.Msg {
		summary, found, err := m.desk.LastIntegrityCheck(m.ctx)
		return lastCheckLoadedMsg{summary: summary, found: found, err: err}
	}
}

func (m *consoleModel) verifyCmd() tea.Cmd {
	return func() tea.Msg {
		report, err := m.desk.VerifyIntegrity(m.ctx, m.session)
		return verifyDoneMsg{report: report, err: err}
	}
}

func (m *consoleModel) logFailure(source string, err error) {
	logging.Warn(m.ctx, "console load failed", slog.String("source", source), slog.Any("err", errs.Loggable(err)))
}

func (m *consoleModel) switchTab(next tab) {
	if next < 0 || int(next) >= len(tabTitles) {
		return
	}
	m.active = next
	m.selectedIndex = 0
}

func (m *consoleModel) rowCount() int {
	switch m.active {
	case tabAudit:
		return len(m.auditEvents)
	case tabAccess:
		return len(m.accessEvents)
	default:
		return 0
	}
}

func (m *consoleModel) clampSelection() {
	count := m.rowCount()
	if m.selectedIndex >= count {
		m.selectedIndex = count - 1
	}
	if m.selectedIndex < 0 {
		m.selectedIndex = 0
	}
}

func (m *consoleModel) selectedAudit() (ports.AuditEvent, bool) {
	if m.active != tabAudit || m.selectedIndex < 0 || m.selectedIndex >= len(m.auditEvents) {
		return ports.AuditEvent{}, false
	}
	return m.auditEvents[m.selectedIndex], true
}

func formatAuditLine(event ports.AuditEvent) string {
	return fmt.Sprintf("%s %-14s %-11s %s %s",
		formatTime(event.FechaHora),
		event.RecetaNumero,
		event.Accion,
		firstNonEmpty(event.Usuario, "-"),
		clip(event.Detalles),
	)
}

func formatAccessLine(event ports.AccessEvent) string {
	return fmt.Sprintf("%s %-22s %-13s %s %s",
		formatTime(event.FechaHora),
		event.Accion,
		event.Resultado,
		firstNonEmpty(event.Usuario, "-"),
		clip(event.Detalles),
	)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-------------------"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// window returns the [start, end) slice of rows to show so that selected is
// always visible.
func window(total int, selected int, size int) (int, int) {
	if total <= size {
		return 0, total
	}
	start := selected - size/2
	if start < 0 {
		start = 0
	}
	if start+size > total {
		start = total - size
	}
	return start, start + size
}

func clip(value string) string {
	line := firstNonEmptyLine(value)
	runes := []rune(line)
	if len(runes) <= maxDetailChars {
		return line
	}
	return string(runes[:maxDetailChars-3]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized != "" {
			return normalized
		}
	}
	return ""
}

func firstNonEmptyLine(body string) string {
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line != "" {
			return line
		}
	}
	return ""
}
