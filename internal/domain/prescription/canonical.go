package prescription

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fields is the hashed field map of a record. It covers identity, clinical
// payload and provenance; the digest itself, the rendered path and lifecycle
// state are excluded so annulment and re-rendering keep the digest valid.
func (r Record) Fields() map[string]any {
	meds := make([]map[string]string, 0, len(r.Meds))
	for _, m := range r.Meds {
		meds = append(meds, map[string]string{
			"nombre":     m.Nombre,
			"dosis":      m.Dosis,
			"frecuencia": m.Frecuencia,
			"via":        m.Via,
			"duracion":   m.Duracion,
			"cantidad":   m.Cantidad,
		})
	}

	createdAt := ""
	if !r.CreatedAt.IsZero() {
		createdAt = FormatTimestamp(r.CreatedAt)
	}

	return map[string]any{
		"id":                       r.ID,
		"numero":                   r.Numero,
		"tipo":                     string(r.Tipo),
		"fecha":                    r.Fecha,
		"unidad":                   r.Unidad,
		"servicio":                 r.Servicio,
		"prescriptor":              r.Prescriptor,
		"prescriptor_especialidad": r.PrescriptorEspecialidad,
		"paciente":                 r.Paciente,
		"ci":                       r.CI,
		"hc":                       r.HC,
		"sexo":                     r.Sexo,
		"fecha_nacimiento":         r.FechaNacimiento,
		"edad":                     r.Edad,
		"meses":                    r.Meses,
		"talla":                    r.Talla,
		"peso":                     r.Peso,
		"cie":                      r.CIE,
		"cie_desc":                 r.CIEDesc,
		"indicaciones":             r.Indicaciones,
		"actividad_fisica":         r.ActividadFisica,
		"estado_enfermedad":        r.EstadoEnfermedad,
		"alergias":                 r.Alergias,
		"alergias_especificar":     r.AlergiasEspecificar,
		"meds":                     meds,
		"created_at":               createdAt,
		"created_by":               r.CreatedBy,
		"ip_address":               r.IPAddress,
	}
}

// CanonicalJSON serializes the field map with sorted keys and without HTML
// escaping, so equal field values always produce equal bytes.
func (r Record) CanonicalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Fields()); err != nil {
		return nil, fmt.Errorf("encode canonical record: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ContentHash is the hex SHA-256 of the canonical serialization.
func (r Record) ContentHash() (string, error) {
	raw, err := r.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

type payloadRecord struct {
	ID                      string       `json:"id"`
	Numero                  string       `json:"numero"`
	Tipo                    string       `json:"tipo"`
	Fecha                   string       `json:"fecha"`
	Unidad                  string       `json:"unidad"`
	Servicio                string       `json:"servicio"`
	Prescriptor             string       `json:"prescriptor"`
	PrescriptorEspecialidad string       `json:"prescriptor_especialidad"`
	Paciente                string       `json:"paciente"`
	CI                      string       `json:"ci"`
	HC                      string       `json:"hc"`
	Sexo                    string       `json:"sexo"`
	FechaNacimiento         string       `json:"fecha_nacimiento"`
	Edad                    *int         `json:"edad"`
	Meses                   *int         `json:"meses"`
	Talla                   *float64     `json:"talla"`
	Peso                    *float64     `json:"peso"`
	CIE                     string       `json:"cie"`
	CIEDesc                 string       `json:"cie_desc"`
	Indicaciones            string       `json:"indicaciones"`
	ActividadFisica         string       `json:"actividad_fisica"`
	EstadoEnfermedad        string       `json:"estado_enfermedad"`
	Alergias                string       `json:"alergias"`
	AlergiasEspecificar     string       `json:"alergias_especificar"`
	Meds                    []Medication `json:"meds"`
	CreatedAt               string       `json:"created_at"`
	CreatedBy               string       `json:"created_by"`
	IPAddress               string       `json:"ip_address"`
}

// FromPayload rebuilds a record from its stored canonical serialization.
// Unknown keys are rejected so a foreign payload never verifies by accident.
func FromPayload(raw []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var p payloadRecord
	if err := dec.Decode(&p); err != nil {
		return Record{}, fmt.Errorf("decode payload: %w", err)
	}

	rec := Record{
		ID:                      p.ID,
		Numero:                  p.Numero,
		Tipo:                    Tipo(p.Tipo),
		Fecha:                   p.Fecha,
		Unidad:                  p.Unidad,
		Servicio:                p.Servicio,
		Prescriptor:             p.Prescriptor,
		PrescriptorEspecialidad: p.PrescriptorEspecialidad,
		Paciente:                p.Paciente,
		CI:                      p.CI,
		HC:                      p.HC,
		Sexo:                    p.Sexo,
		FechaNacimiento:         p.FechaNacimiento,
		Edad:                    p.Edad,
		Meses:                   p.Meses,
		Talla:                   p.Talla,
		Peso:                    p.Peso,
		CIE:                     p.CIE,
		CIEDesc:                 p.CIEDesc,
		Indicaciones:            p.Indicaciones,
		ActividadFisica:         p.ActividadFisica,
		EstadoEnfermedad:        p.EstadoEnfermedad,
		Alergias:                p.Alergias,
		AlergiasEspecificar:     p.AlergiasEspecificar,
		Meds:                    p.Meds,
		CreatedBy:               p.CreatedBy,
		IPAddress:               p.IPAddress,
	}

	if p.CreatedAt != "" {
		ts, err := ParseTimestamp(p.CreatedAt)
		if err != nil {
			return Record{}, fmt.Errorf("decode payload created_at: %w", err)
		}
		rec.CreatedAt = ts
	}

	return rec, nil
}

// MedsFromPayload extracts only the medication list, ignoring any other keys.
// Payloads written by earlier versions of the desk carry extra fields.
func MedsFromPayload(raw []byte) ([]Medication, error) {
	var p struct {
		Meds []Medication `json:"meds"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payload meds: %w", err)
	}
	return p.Meds, nil
}
