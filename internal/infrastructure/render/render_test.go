package render

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"

	"recetario/internal/domain/document"
	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
)

func sampleDocument() document.Prescription {
	return document.Prescription{
		Numero:       "EM-2025-000007",
		Tipo:         prescription.TipoEmergencia,
		Fecha:        "04/03/2025",
		Unidad:       "HOSPITAL BÁSICO DE CAYAMBE",
		Especialidad: "MEDICINA INTERNA",
		Prescriptor:  "Juan Carlos Pérez Gómez",
		Paciente:     "Ana López",
		CI:           "1712345678",
		Edad:         "54",
		HealthStatus: true,
		Alergias:     "SI - penicilina",
		Diagnostico:  "I10 - Hipertensión esencial (primaria)",
		Medications: [][]string{
			{"Losartan 50 mg tabletas recubiertas de liberación prolongada", "1 tab", "QD", "VO", "30 días", "30"},
			{"Paracetamol 500 mg", "1 tab", "PRN", "VO", "5 días", "10"},
		},
		Indicaciones: strings.Repeat("Control de presión arterial diario. ", 20),
	}
}

func TestRenderPrescriptionWritesPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "EM-2025-000007.pdf")
	r := NewPDFRenderer(DefaultProfile())

	if err := r.RenderPrescription(context.Background(), sampleDocument(), path); err != nil {
		t.Fatalf("RenderPrescription() error = %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rendered file: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte("%PDF-")) {
		t.Fatalf("rendered file is not a PDF: %q", raw[:min(len(raw), 8)])
	}

	err = r.RenderPrescription(context.Background(), sampleDocument(), path)
	if !errors.Is(err, ErrArtifactExists) {
		t.Fatalf("RenderPrescription(existing) error = %v, want ErrArtifactExists", err)
	}
	var se *errs.StackError
	if !errors.As(err, &se) {
		t.Fatalf("RenderPrescription(existing) error should carry a stack trace")
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestRenderInstructionsWritesPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EM-2025-000007_indicaciones.pdf")
	doc := document.Instructions{
		Numero:       "EM-2025-000007",
		Paciente:     "Ana López",
		Edad:         "7 años 3 meses",
		CI:           "1712345678",
		Prescriptor:  "Juan Carlos Pérez Gómez",
		Indicaciones: "(Sin indicaciones)",
	}

	if err := NewPDFRenderer(DefaultProfile()).RenderInstructions(context.Background(), doc, path); err != nil {
		t.Fatalf("RenderInstructions() error = %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("instructions file missing or empty: %v", err)
	}
}

func TestWrapTextRespectsWidth(t *testing.T) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont(fontFamily, "", 9)

	lines := wrapText(pdf, "Amoxicilina con acido clavulanico suspension oral 250 mg/5 ml", 30)
	if len(lines) < 2 {
		t.Fatalf("wrapText() = %q, want several lines", lines)
	}
	for _, l := range lines {
		if pdf.GetStringWidth(l) > 30 {
			t.Fatalf("line %q exceeds width", l)
		}
	}

	if got := wrapText(pdf, "   ", 30); len(got) != 1 || got[0] != "" {
		t.Fatalf("wrapText(blank) = %q", got)
	}

	long := wrapText(pdf, strings.Repeat("X", 80), 20)
	if len(long) < 2 || strings.Join(long, "") != strings.Repeat("X", 80) {
		t.Fatalf("wrapText(long word) = %q", long)
	}
}

func TestLoadProfileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documento.toml")
	content := `
institution = "CENTRO DE SALUD TIPO C"

[tipos.em]
color = [10, 20, 30]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if p.Institution != "CENTRO DE SALUD TIPO C" || p.Title != DefaultProfile().Title {
		t.Fatalf("profile = %+v", p)
	}
	em := p.style(prescription.TipoEmergencia)
	if em.Color != [3]int{10, 20, 30} || em.Name != "EMERGENCIA" {
		t.Fatalf("EM style = %+v", em)
	}
	if ce := p.style(prescription.TipoConsultaExterna); ce.Color != [3]int{0, 100, 200} {
		t.Fatalf("CE style = %+v", ce)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("[tipos.XX]\nname = \"otro\"\n"), 0o644); err != nil {
		t.Fatalf("write bad profile: %v", err)
	}
	if _, err := LoadProfile(bad); err == nil {
		t.Fatalf("LoadProfile(unknown tipo) should fail")
	}

	defaults, err := LoadProfile("")
	if err != nil || defaults.Institution != "HOSPITAL BÁSICO DE CAYAMBE" {
		t.Fatalf("LoadProfile(\"\") = %+v, %v", defaults, err)
	}
}
