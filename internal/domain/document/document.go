package document

import (
	"strings"

	"recetario/internal/domain/prescription"
)

// MedicationHeaders are the column titles of the medication table.
var MedicationHeaders = []string{"Medicamento", "Dosis", "Frecuencia", "Vía", "Duración", "Cantidad"}

// Prescription is the renderer-facing shape of an issued record. Every value
// is already formatted for print; optional fields are empty strings.
type Prescription struct {
	Numero   string
	Tipo     prescription.Tipo
	TipoName string
	Fecha    string

	Unidad       string
	Especialidad string
	Prescriptor  string

	Paciente        string
	CI              string
	HC              string
	Sexo            string
	FechaNacimiento string
	Edad            string
	Meses           string
	Talla           string
	Peso            string

	// HealthStatus is false when no health flag was recorded; the section is omitted.
	HealthStatus     bool
	ActividadFisica  string
	EstadoEnfermedad string
	Alergias         string

	Diagnostico  string
	Medications  [][]string
	Indicaciones string

	Anulada bool
}

// Instructions is the separate patient hand-out with only the indications.
type Instructions struct {
	Numero          string
	Unidad          string
	Paciente        string
	FechaNacimiento string
	Edad            string
	CI              string
	Prescriptor     string
	Indicaciones    string
}

// Assemble maps a validated record into the document shape.
func Assemble(rec prescription.Record) Prescription {
	especialidad := rec.PrescriptorEspecialidad
	if strings.TrimSpace(especialidad) == "" {
		especialidad = rec.Servicio
	}

	alergias := rec.Alergias
	if rec.AlergiasEspecificar != "" {
		alergias = strings.TrimSpace(alergias + " - " + rec.AlergiasEspecificar)
	}

	diagnostico := rec.CIE
	if rec.CIEDesc != "" {
		diagnostico = rec.CIE + " - " + rec.CIEDesc
	}

	meds := make([][]string, 0, len(rec.Meds))
	for _, m := range rec.Meds {
		meds = append(meds, []string{m.Nombre, m.Dosis, m.Frecuencia, m.Via, m.Duracion, m.Cantidad})
	}

	return Prescription{
		Numero:           rec.Numero,
		Tipo:             rec.Tipo,
		TipoName:         rec.Tipo.DisplayName(),
		Fecha:            rec.Fecha,
		Unidad:           rec.Unidad,
		Especialidad:     especialidad,
		Prescriptor:      rec.Prescriptor,
		Paciente:         rec.Paciente,
		CI:               rec.CI,
		HC:               rec.HC,
		Sexo:             rec.Sexo,
		FechaNacimiento:  rec.FechaNacimiento,
		Edad:             prescription.FormatInt(rec.Edad),
		Meses:            prescription.FormatInt(rec.Meses),
		Talla:            prescription.FormatFloat(rec.Talla),
		Peso:             prescription.FormatFloat(rec.Peso),
		HealthStatus:     rec.ActividadFisica != "" || rec.EstadoEnfermedad != "" || rec.Alergias != "",
		ActividadFisica:  rec.ActividadFisica,
		EstadoEnfermedad: rec.EstadoEnfermedad,
		Alergias:         alergias,
		Diagnostico:      diagnostico,
		Medications:      meds,
		Indicaciones:     rec.Indicaciones,
		Anulada:          rec.Estado == prescription.EstadoAnulada,
	}
}

// AssembleInstructions builds the indications hand-out.
func AssembleInstructions(rec prescription.Record) Instructions {
	var edad []string
	if rec.Edad != nil {
		edad = append(edad, prescription.FormatInt(rec.Edad)+" años")
	}
	if rec.Meses != nil {
		edad = append(edad, prescription.FormatInt(rec.Meses)+" meses")
	}

	indicaciones := strings.TrimSpace(rec.Indicaciones)
	if indicaciones == "" {
		indicaciones = "(Sin indicaciones)"
	}

	return Instructions{
		Numero:          rec.Numero,
		Unidad:          rec.Unidad,
		Paciente:        rec.Paciente,
		FechaNacimiento: rec.FechaNacimiento,
		Edad:            strings.Join(edad, " "),
		CI:              rec.CI,
		Prescriptor:     rec.Prescriptor,
		Indicaciones:    indicaciones,
	}
}
