package repository

import (
	"recetario/internal/domain/prescription"
	"recetario/internal/infrastructure/persistence/sqlite/model"
)

func toRecetaRow(rec prescription.Record, payload []byte) model.Receta {
	estado := rec.Estado
	if estado == "" {
		estado = prescription.EstadoActiva
	}

	return model.Receta{
		ID:                      rec.ID,
		Numero:                  rec.Numero,
		Tipo:                    string(rec.Tipo),
		Fecha:                   rec.Fecha,
		Unidad:                  rec.Unidad,
		Servicio:                rec.Servicio,
		Prescriptor:             rec.Prescriptor,
		PrescriptorEspecialidad: rec.PrescriptorEspecialidad,
		Paciente:                rec.Paciente,
		CI:                      rec.CI,
		HC:                      rec.HC,
		Edad:                    prescription.FormatInt(rec.Edad),
		Meses:                   prescription.FormatInt(rec.Meses),
		Sexo:                    rec.Sexo,
		Talla:                   prescription.FormatFloat(rec.Talla),
		Peso:                    prescription.FormatFloat(rec.Peso),
		FechaNacimiento:         rec.FechaNacimiento,
		CIE:                     rec.CIE,
		CIEDesc:                 rec.CIEDesc,
		Indicaciones:            rec.Indicaciones,
		ActividadFisica:         rec.ActividadFisica,
		EstadoEnfermedad:        rec.EstadoEnfermedad,
		Alergias:                rec.Alergias,
		AlergiasEspecificar:     rec.AlergiasEspecificar,
		Payload:                 string(payload),
		PDFPath:                 rec.PDFPath,
		CreatedAt:               prescription.FormatTimestamp(rec.CreatedAt),
		CreatedBy:               rec.CreatedBy,
		IPAddress:               rec.IPAddress,
		HashVerificacion:        rec.HashVerificacion,
		Estado:                  string(estado),
		Modificaciones:          rec.Modificaciones,
	}
}

// fromRecetaRow rebuilds the column view of a record. Medications live only
// in the payload and are left empty. Legacy values that do not parse are
// left unset; verification then reports the row as a mismatch.
func fromRecetaRow(row model.Receta) prescription.Record {
	rec := prescription.Record{
		ID:                      row.ID,
		Numero:                  row.Numero,
		Tipo:                    prescription.Tipo(row.Tipo),
		Fecha:                   row.Fecha,
		Unidad:                  row.Unidad,
		Servicio:                row.Servicio,
		Prescriptor:             row.Prescriptor,
		PrescriptorEspecialidad: row.PrescriptorEspecialidad,
		Paciente:                row.Paciente,
		CI:                      row.CI,
		HC:                      row.HC,
		Sexo:                    row.Sexo,
		FechaNacimiento:         row.FechaNacimiento,
		CIE:                     row.CIE,
		CIEDesc:                 row.CIEDesc,
		Indicaciones:            row.Indicaciones,
		ActividadFisica:         row.ActividadFisica,
		EstadoEnfermedad:        row.EstadoEnfermedad,
		Alergias:                row.Alergias,
		AlergiasEspecificar:     row.AlergiasEspecificar,
		CreatedBy:               row.CreatedBy,
		IPAddress:               row.IPAddress,
		HashVerificacion:        row.HashVerificacion,
		Estado:                  prescription.Estado(row.Estado),
		Modificaciones:          row.Modificaciones,
		PDFPath:                 row.PDFPath,
	}
	if rec.Estado == "" {
		rec.Estado = prescription.EstadoActiva
	}

	rec.Edad, _ = prescription.ParseInt(row.Edad)
	rec.Meses, _ = prescription.ParseInt(row.Meses)
	rec.Talla, _ = prescription.ParseFloat(row.Talla)
	rec.Peso, _ = prescription.ParseFloat(row.Peso)
	if row.CreatedAt != "" {
		if ts, err := prescription.ParseTimestamp(row.CreatedAt); err == nil {
			rec.CreatedAt = ts
		}
	}
	return rec
}

// withPayloadMeds fills the medication list from the stored payload when it
// decodes.
func withPayloadMeds(rec prescription.Record, payload string) prescription.Record {
	if payload == "" {
		return rec
	}
	if meds, err := prescription.MedsFromPayload([]byte(payload)); err == nil {
		rec.Meds = meds
	}
	return rec
}
