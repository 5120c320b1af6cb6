package prescription

import (
	"fmt"
	"strings"
	"unicode"
)

// Violation is one failed rule, keyed by form field.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError carries every violation found in one pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// AsError returns nil for an empty list.
func AsError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

// ValidateCI accepts identifiers of at least 10 alphanumeric characters once
// spaces are removed.
func ValidateCI(ci string) bool {
	ci = strings.ReplaceAll(strings.TrimSpace(ci), " ", "")
	if len([]rune(ci)) < 10 {
		return false
	}
	for _, r := range ci {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

type numericRange struct {
	field string
	label string
	value *float64
	min   float64
	max   float64
}

// Validate checks a record before a number is allocated. It never mutates
// the record and reports every violation, not just the first.
func Validate(r Record) []Violation {
	var out []Violation

	required := []struct {
		field string
		label string
		value string
	}{
		{"paciente", "Paciente", r.Paciente},
		{"ci", "CI", r.CI},
		{"cie", "CIE-10", r.CIE},
		{"prescriptor", "Prescriptor", r.Prescriptor},
		{"prescriptor_especialidad", "Especialidad del Prescriptor", r.PrescriptorEspecialidad},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, Violation{Field: f.field, Message: "Falta: " + f.label})
		}
	}

	if strings.TrimSpace(r.CI) != "" && !ValidateCI(r.CI) {
		out = append(out, Violation{Field: "ci", Message: "CI no válida (mínimo 10 caracteres alfanuméricos)"})
	}

	if _, err := ParseTipo(string(r.Tipo)); err != nil {
		out = append(out, Violation{Field: "tipo", Message: "Tipo de receta no válido (CE, EM o EH)"})
	}

	for _, rng := range []numericRange{
		{"edad", "Edad", intAsFloat(r.Edad), 0, 150},
		{"meses", "Meses", intAsFloat(r.Meses), 0, 11},
		{"talla", "Talla", r.Talla, 0, 300},
		{"peso", "Peso", r.Peso, 0, 1000},
	} {
		if v := checkRange(rng); v != nil {
			out = append(out, *v)
		}
	}

	if len(r.Meds) == 0 {
		out = append(out, Violation{Field: "meds", Message: "Agregue al menos un medicamento."})
	}
	for i, m := range r.Meds {
		if strings.TrimSpace(m.Nombre) == "" {
			out = append(out, Violation{
				Field:   fmt.Sprintf("meds[%d].nombre", i),
				Message: "Falta: nombre del medicamento",
			})
		}
	}

	return out
}

func checkRange(r numericRange) *Violation {
	if r.value == nil {
		return nil
	}
	if *r.value < r.min {
		return &Violation{Field: r.field, Message: fmt.Sprintf("%s debe ser mayor o igual a %g", r.label, r.min)}
	}
	if *r.value > r.max {
		return &Violation{Field: r.field, Message: fmt.Sprintf("%s debe ser menor o igual a %g", r.label, r.max)}
	}
	return nil
}

func intAsFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
