package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/document"
	"recetario/internal/errs"
)

// ErrArtifactExists is returned instead of overwriting a rendered document.
var ErrArtifactExists = errors.New("document already rendered")

const (
	fontFamily  = "Arial"
	leftMargin  = 10.0
	bodyWidth   = 180.0
	cellPadding = 2.0
)

var medicationWidths = []float64{70, 20, 25, 25, 25, 25}

// PDFRenderer writes prescriptions and instruction hand-outs as A4 PDFs.
type PDFRenderer struct {
	profile Profile
}

func NewPDFRenderer(profile Profile) *PDFRenderer {
	return &PDFRenderer{profile: profile}
}

func (r *PDFRenderer) RenderPrescription(ctx context.Context, doc document.Prescription, path string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	pdf := r.prescriptionPDF(doc)
	if err := writePDF(pdf, path); err != nil {
		return errs.WithStack(err)
	}
	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "render.pdf")),
		"prescription rendered",
		slog.String("numero", doc.Numero),
		slog.String("path", path),
	)
	return nil
}

func (r *PDFRenderer) RenderInstructions(ctx context.Context, doc document.Instructions, path string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	pdf := r.instructionsPDF(doc)
	if err := writePDF(pdf, path); err != nil {
		return errs.WithStack(err)
	}
	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "render.pdf")),
		"instructions rendered",
		slog.String("numero", doc.Numero),
		slog.String("path", path),
	)
	return nil
}

func (r *PDFRenderer) prescriptionPDF(doc document.Prescription) *fpdf.Fpdf {
	style := r.profile.style(doc.Tipo)
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFillColor(style.Color[0], style.Color[1], style.Color[2])
		pdf.Rect(0, 0, 210, 25, "F")
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont(fontFamily, "B", 16)
		pdf.CellFormat(0, 10, tr(r.profile.Institution), "", 1, "C", false, 0, "")
		pdf.SetFont(fontFamily, "B", 12)
		pdf.CellFormat(0, 8, tr(r.profile.Title), "", 1, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(5)
	})
	setPageFooter(pdf, tr)
	pdf.AddPage()

	if doc.Anulada {
		pdf.SetFont(fontFamily, "B", 14)
		pdf.SetTextColor(220, 53, 69)
		pdf.CellFormat(0, 8, "ANULADA", "", 1, "R", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.SetFont(fontFamily, "B", 12)
	line(pdf, tr, 8, "TIPO: "+style.Name)
	line(pdf, tr, 8, "NÚMERO: "+orDefault(doc.Numero, "N/A"))
	line(pdf, tr, 8, "FECHA: "+doc.Fecha)
	pdf.Ln(3)

	pdf.SetFont(fontFamily, "", 10)
	line(pdf, tr, 6, "Unidad de Salud: "+doc.Unidad)
	line(pdf, tr, 6, "Especialidad: "+doc.Especialidad)
	line(pdf, tr, 6, "Prescriptor: "+doc.Prescriptor)
	pdf.Ln(3)

	section(pdf, tr, "DATOS DEL PACIENTE")
	pdf.CellFormat(100, 6, tr("Paciente: "+doc.Paciente), "", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, tr("CI: "+doc.CI), "", 1, "", false, 0, "")
	if doc.FechaNacimiento != "" {
		line(pdf, tr, 6, "Fecha de Nacimiento: "+doc.FechaNacimiento)
	}
	pdf.CellFormat(50, 6, tr("Historia Clínica: "+doc.HC), "", 0, "", false, 0, "")
	pdf.CellFormat(30, 6, tr("Sexo: "+doc.Sexo), "", 0, "", false, 0, "")
	pdf.CellFormat(30, 6, tr("Edad: "+withUnit(doc.Edad, "años")), "", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, tr("Meses: "+doc.Meses), "", 1, "", false, 0, "")
	pdf.CellFormat(50, 6, tr("Talla: "+withUnit(doc.Talla, "cm")), "", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, tr("Peso: "+withUnit(doc.Peso, "kg")), "", 1, "", false, 0, "")
	pdf.Ln(2)

	if doc.HealthStatus {
		pdf.CellFormat(70, 6, tr("Actividad Física: "+doc.ActividadFisica), "", 0, "", false, 0, "")
		pdf.CellFormat(0, 6, tr("Estado de Enfermedad: "+doc.EstadoEnfermedad), "", 1, "", false, 0, "")
		line(pdf, tr, 6, "Alergias: "+doc.Alergias)
		pdf.Ln(2)
	}

	section(pdf, tr, "DIAGNÓSTICO")
	line(pdf, tr, 6, "CIE-10: "+doc.Diagnostico)
	pdf.Ln(3)

	section(pdf, tr, "MEDICAMENTOS PRESCRITOS")
	pdf.SetFont(fontFamily, "", 9)
	pdf.SetFillColor(240, 240, 240)
	for i, header := range document.MedicationHeaders {
		pdf.CellFormat(medicationWidths[i], 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(8)
	pdf.SetFillColor(255, 255, 255)
	medicationTable(pdf, tr, doc.Medications, medicationWidths, 6)
	pdf.Ln(5)

	if strings.TrimSpace(doc.Indicaciones) != "" {
		section(pdf, tr, "INDICACIONES / ADVERTENCIAS / RECOMENDACIONES")
		for _, l := range wrapText(pdf, tr(doc.Indicaciones), bodyWidth) {
			pdf.CellFormat(0, 6, l, "", 1, "", false, 0, "")
		}
	}
	pdf.Ln(10)

	pdf.SetFont(fontFamily, "", 10)
	pdf.CellFormat(0, 6, strings.Repeat("_", 50), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "Firma y Sello del Prescriptor", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(doc.Prescriptor), "", 1, "C", false, 0, "")
	return pdf
}

func (r *PDFRenderer) instructionsPDF(doc document.Instructions) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFillColor(240, 240, 240)
		pdf.Rect(0, 0, 210, 18, "F")
		pdf.SetFont(fontFamily, "B", 12)
		pdf.CellFormat(0, 10, tr(r.profile.Institution+" - INDICACIONES"), "", 1, "C", false, 0, "")
		pdf.Ln(2)
	})
	setPageFooter(pdf, tr)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "", 10)
	line(pdf, tr, 6, "Paciente: "+doc.Paciente)
	if doc.FechaNacimiento != "" {
		line(pdf, tr, 6, "Fecha de Nacimiento: "+doc.FechaNacimiento)
	}
	line(pdf, tr, 6, "Edad: "+doc.Edad)
	line(pdf, tr, 6, "CI: "+doc.CI)
	line(pdf, tr, 6, "Prescriptor: "+doc.Prescriptor)
	pdf.Ln(4)

	section(pdf, tr, "INDICACIONES")
	for _, l := range wrapText(pdf, tr(doc.Indicaciones), bodyWidth) {
		pdf.CellFormat(0, 6, l, "", 1, "", false, 0, "")
	}
	return pdf
}

func setPageFooter(pdf *fpdf.Fpdf, tr func(string) string) {
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 8)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Página %d", pdf.PageNo())), "", 0, "C", false, 0, "")
	})
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(0, 8, tr(title), "", 1, "", false, 0, "")
	pdf.SetFont(fontFamily, "", 10)
}

func line(pdf *fpdf.Fpdf, tr func(string) string, h float64, text string) {
	pdf.CellFormat(0, h, tr(text), "", 1, "", false, 0, "")
}

// medicationTable draws bordered rows whose height grows with the longest
// wrapped cell. A row that would cross the bottom margin starts a new page.
func medicationTable(pdf *fpdf.Fpdf, tr func(string) string, rows [][]string, widths []float64, height float64) {
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	for _, row := range rows {
		wrapped := make([][]string, len(widths))
		maxLines := 1
		for i, w := range widths {
			text := ""
			if i < len(row) {
				text = tr(row[i])
			}
			wrapped[i] = wrapText(pdf, text, w-cellPadding)
			if len(wrapped[i]) > maxLines {
				maxLines = len(wrapped[i])
			}
		}

		rowHeight := height * float64(maxLines)
		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
		}
		startY := pdf.GetY()
		x := leftMargin
		for i, w := range widths {
			pdf.Rect(x, startY, w, rowHeight, "D")
			for j, l := range wrapped[i] {
				pdf.SetXY(x+1, startY+float64(j)*height+1)
				pdf.CellFormat(w-cellPadding, height-1, l, "", 0, "L", false, 0, "")
			}
			x += w
		}
		pdf.SetY(startY + rowHeight)
	}
}

// wrapText splits text into lines no wider than width at the current font.
// A single word wider than the line is cut.
func wrapText(pdf *fpdf.Fpdf, text string, width float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := ""
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if pdf.GetStringWidth(candidate) <= width {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
		for pdf.GetStringWidth(current) > width && len(current) > 1 {
			cut := len(current) - 1
			for cut > 1 && pdf.GetStringWidth(current[:cut]) > width {
				cut--
			}
			lines = append(lines, current[:cut])
			current = current[cut:]
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func withUnit(value, unit string) string {
	if value == "" {
		return ""
	}
	return value + " " + unit
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// writePDF renders into a temporary file next to path and links it into
// place, refusing to replace an existing document.
func writePDF(pdf *fpdf.Fpdf, path string) error {
	if _, err := os.Stat(path); err == nil {
		return errs.Wrapf(ErrArtifactExists, "path %s", path)
	}
	if err := pdf.Error(); err != nil {
		return errs.Wrap(err, "layout document")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrapf(err, "create output directory %q", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.Wrap(err, "create temporary document")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := pdf.Output(tmp); err != nil {
		_ = tmp.Close()
		return errs.Wrap(err, "write document")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, "close document")
	}

	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return errs.Wrapf(ErrArtifactExists, "path %s", path)
		}
		return errs.Wrap(err, "move document into place")
	}
	return nil
}
