package prescription

import (
	"fmt"
	"strings"
)

// Tipo is the prescription category.
type Tipo string

const (
	TipoConsultaExterna Tipo = "CE"
	TipoEmergencia      Tipo = "EM"
	TipoHospitalizacion Tipo = "EH"
)

// Tipos lists every seeded category in display order.
func Tipos() []Tipo {
	return []Tipo{TipoConsultaExterna, TipoEmergencia, TipoHospitalizacion}
}

func ParseTipo(raw string) (Tipo, error) {
	switch t := Tipo(strings.ToUpper(strings.TrimSpace(raw))); t {
	case TipoConsultaExterna, TipoEmergencia, TipoHospitalizacion:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTipo, raw)
	}
}

func (t Tipo) DisplayName() string {
	switch t {
	case TipoConsultaExterna:
		return "CONSULTA EXTERNA"
	case TipoEmergencia:
		return "EMERGENCIA"
	case TipoHospitalizacion:
		return "HOSPITALIZACIÓN"
	default:
		return string(t)
	}
}

// Estado is the soft lifecycle marker of a record.
type Estado string

const (
	EstadoActiva  Estado = "ACTIVA"
	EstadoAnulada Estado = "ANULADA"
)
