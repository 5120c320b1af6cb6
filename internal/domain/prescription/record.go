package prescription

import (
	"fmt"
	"time"
)

// TimestampLayout is fixed-width so stored timestamps sort lexically.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Medication is one line item of a prescription, in issue order.
type Medication struct {
	Nombre     string `json:"nombre" toml:"nombre"`
	Dosis      string `json:"dosis" toml:"dosis"`
	Frecuencia string `json:"frecuencia" toml:"frecuencia"`
	Via        string `json:"via" toml:"via"`
	Duracion   string `json:"duracion" toml:"duracion"`
	Cantidad   string `json:"cantidad" toml:"cantidad"`
}

// Record is a prescription as issued. Physiological fields are optional and
// nil means "not recorded", which is distinct from zero.
type Record struct {
	ID     string
	Numero string
	Tipo   Tipo
	// Fecha is the issue date as printed, dd/mm/yyyy.
	Fecha string

	Unidad                  string
	Servicio                string
	Prescriptor             string
	PrescriptorEspecialidad string

	Paciente        string
	CI              string
	HC              string
	Sexo            string
	FechaNacimiento string

	Edad  *int
	Meses *int
	Talla *float64
	Peso  *float64

	CIE          string
	CIEDesc      string
	Indicaciones string

	ActividadFisica     string
	EstadoEnfermedad    string
	Alergias            string
	AlergiasEspecificar string

	Meds []Medication

	CreatedAt        time.Time
	CreatedBy        string
	IPAddress        string
	HashVerificacion string

	Estado         Estado
	Modificaciones string
	PDFPath        string
}

// FormatFecha renders an issue date the way documents print it.
func FormatFecha(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatTimestamp is the stored representation of provenance timestamps.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp reads stored timestamps, including zone-less values written
// by earlier versions of the desk, which are taken as local time.
func ParseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999"} {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", raw)
}
