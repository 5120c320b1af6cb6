package identity

import "strings"

var (
	nombresHeaders      = []string{"nombres", "nombre", "primer nombre", "nombres y apellidos"}
	apellidosHeaders    = []string{"apellidos", "apellido"}
	especialidadHeaders = []string{"especialidad", "servicio", "area", "área"}
	rolHeaders          = []string{"rol", "tipo", "cargo", "categoria"}
	cedulaHeaders       = []string{
		"cedula", "cédula", "dni", "id", "identificacion", "identificación",
		"numero de cedula", "número de cédula", "numero de cédula",
		"num de cedula", "nro de cedula", "numero cedula",
	}
)

// RosterFromTable maps a header row plus data rows to roster entries,
// tolerating the header spellings found in clinic spreadsheets.
func RosterFromTable(header []string, rows [][]string) []RosterEntry {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, seen := cols[key]; !seen && key != "" {
			cols[key] = i
		}
	}

	nombres := pick(cols, nombresHeaders)
	apellidos := pick(cols, apellidosHeaders)
	especialidad := pick(cols, especialidadHeaders)
	rol := pick(cols, rolHeaders)
	cedula := pick(cols, cedulaHeaders)
	if cedula < 0 {
		for i, h := range header {
			key := strings.ToLower(strings.TrimSpace(h))
			if strings.Contains(key, "cedul") || key == "ci" {
				cedula = i
				break
			}
		}
	}

	out := make([]RosterEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, RosterEntry{
			Nombres:      cell(row, nombres),
			Apellidos:    cell(row, apellidos),
			Cedula:       cell(row, cedula),
			Especialidad: cell(row, especialidad),
			Rol:          cell(row, rol),
		})
	}
	return out
}

func pick(cols map[string]int, keys []string) int {
	for _, k := range keys {
		if idx, ok := cols[k]; ok {
			return idx
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
