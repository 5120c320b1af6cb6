package prescription

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Form is the clinician-submitted input. Numeric fields accept TOML
// integers, floats or strings; an empty string means not recorded.
type Form struct {
	Tipo                string       `toml:"tipo"`
	Servicio            string       `toml:"servicio"`
	Paciente            string       `toml:"paciente"`
	CI                  string       `toml:"ci"`
	HC                  string       `toml:"hc"`
	Sexo                string       `toml:"sexo"`
	FechaNacimiento     string       `toml:"fecha_nacimiento"`
	Edad                any          `toml:"edad"`
	Meses               any          `toml:"meses"`
	Talla               any          `toml:"talla"`
	Peso                any          `toml:"peso"`
	CIE                 string       `toml:"cie"`
	CIEDesc             string       `toml:"cie_desc"`
	Indicaciones        string       `toml:"indicaciones"`
	ActividadFisica     string       `toml:"actividad_fisica"`
	EstadoEnfermedad    string       `toml:"estado_enfermedad"`
	Alergias            string       `toml:"alergias"`
	AlergiasEspecificar string       `toml:"alergias_especificar"`
	Meds                []Medication `toml:"meds"`
}

// Record converts the form into a draft record. Conversion problems are
// returned as violations alongside whatever could be converted.
func (f Form) Record() (Record, []Violation) {
	var violations []Violation

	rec := Record{
		Tipo:                Tipo(strings.ToUpper(strings.TrimSpace(f.Tipo))),
		Servicio:            strings.TrimSpace(f.Servicio),
		Paciente:            strings.TrimSpace(f.Paciente),
		CI:                  strings.ReplaceAll(strings.TrimSpace(f.CI), " ", ""),
		HC:                  strings.TrimSpace(f.HC),
		Sexo:                strings.TrimSpace(f.Sexo),
		FechaNacimiento:     strings.TrimSpace(f.FechaNacimiento),
		CIE:                 strings.ToUpper(strings.TrimSpace(f.CIE)),
		CIEDesc:             strings.TrimSpace(f.CIEDesc),
		Indicaciones:        strings.TrimSpace(f.Indicaciones),
		ActividadFisica:     strings.TrimSpace(f.ActividadFisica),
		EstadoEnfermedad:    strings.TrimSpace(f.EstadoEnfermedad),
		Alergias:            strings.TrimSpace(f.Alergias),
		AlergiasEspecificar: strings.TrimSpace(f.AlergiasEspecificar),
		Estado:              EstadoActiva,
	}

	for _, m := range f.Meds {
		rec.Meds = append(rec.Meds, Medication{
			Nombre:     strings.TrimSpace(m.Nombre),
			Dosis:      strings.TrimSpace(m.Dosis),
			Frecuencia: strings.TrimSpace(m.Frecuencia),
			Via:        strings.TrimSpace(m.Via),
			Duracion:   strings.TrimSpace(m.Duracion),
			Cantidad:   strings.TrimSpace(m.Cantidad),
		})
	}

	var v *Violation
	if rec.Edad, v = optionalInt("edad", "Edad", f.Edad); v != nil {
		violations = append(violations, *v)
	}
	if rec.Meses, v = optionalInt("meses", "Meses", f.Meses); v != nil {
		violations = append(violations, *v)
	}
	if rec.Talla, v = optionalFloat("talla", "Talla", f.Talla); v != nil {
		violations = append(violations, *v)
	}
	if rec.Peso, v = optionalFloat("peso", "Peso", f.Peso); v != nil {
		violations = append(violations, *v)
	}

	return rec, violations
}

func optionalFloat(field, label string, raw any) (*float64, *Violation) {
	bad := &Violation{Field: field, Message: label + " debe ser un número válido"}

	var out float64
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case int64:
		out = float64(val)
	case int:
		out = float64(val)
	case float64:
		out = val
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
		if s == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, bad
		}
		out = parsed
	default:
		return nil, bad
	}

	if math.IsNaN(out) || math.IsInf(out, 0) {
		return nil, bad
	}
	return &out, nil
}

func optionalInt(field, label string, raw any) (*int, *Violation) {
	f, v := optionalFloat(field, label, raw)
	if v != nil || f == nil {
		return nil, v
	}
	if *f != math.Trunc(*f) {
		return nil, &Violation{Field: field, Message: fmt.Sprintf("%s debe ser un número entero", label)}
	}
	n := int(*f)
	return &n, nil
}
