package identity

import (
	"errors"
	"reflect"
	"testing"

	"recetario/internal/domain/prescription"
)

func TestNormalizeText(t *testing.T) {
	testCases := map[string]string{
		"  Pérez Gómez ": "perez gomez",
		"NÚÑEZ-Ortiz":    "nunezortiz",
		"JCPG":           "jcpg",
		"José_María 2":   "josemaria 2",
		"":               "",
	}
	for in, want := range testCases {
		if got := NormalizeText(in); got != want {
			t.Fatalf("NormalizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContractionUsername(t *testing.T) {
	testCases := []struct {
		nombres   string
		apellidos string
		want      string
	}{
		{"Juan Carlos", "Pérez Gómez", "jcpg"},
		{"María José Antonia", "Álvarez", "mja"},
		{"", "Ñusta Quispe Mamani", "nq"},
		{"", "", "usuario"},
		{"¡¿", "--", "usuario"},
	}
	for _, tc := range testCases {
		if got := ContractionUsername(tc.nombres, tc.apellidos); got != tc.want {
			t.Fatalf("ContractionUsername(%q, %q) = %q, want %q", tc.nombres, tc.apellidos, got, tc.want)
		}
	}
}

func TestBuildDirectoryAndAuthenticate(t *testing.T) {
	entries := []RosterEntry{
		{Nombres: "Juan Carlos", Apellidos: "Pérez Gómez", Cedula: "0102030405", Especialidad: "cirugía general"},
		{Nombres: "Lucía", Apellidos: "Andrade Vega", Cedula: "1711111111", Rol: "Médico Residente"},
		{Nombres: "Sin", Apellidos: "Cedula"},
		{Cedula: "1722222222"},
	}

	dir := BuildDirectory(entries)
	if dir.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", dir.Len())
	}

	id, err := dir.Authenticate(" JCPG ", "0102030405")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Username != "jcpg" || id.DisplayName != "Juan Carlos Pérez Gómez" || id.Role != RoleEspecialista {
		t.Fatalf("Authenticate() = %+v", id)
	}
	if id.Especialidad != "CIRUGÍA GENERAL" {
		t.Fatalf("Especialidad = %q", id.Especialidad)
	}

	resident, err := dir.Authenticate("lav", "1711111111")
	if err != nil {
		t.Fatalf("Authenticate(resident) error = %v", err)
	}
	if resident.Role != RoleResidente || resident.Especialidad != DefaultSpecialty {
		t.Fatalf("resident = %+v", resident)
	}

	if _, err := dir.Authenticate("jcpg", "0102030406"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Authenticate(wrong credential) error = %v", err)
	}
	if _, err := dir.Authenticate("nobody", "0102030405"); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Authenticate(unknown) error = %v", err)
	}
}

func TestBuildDirectoryIsIdempotent(t *testing.T) {
	entries := []RosterEntry{
		{Nombres: "Juan Carlos", Apellidos: "Pérez Gómez", Cedula: "0102030405"},
		{Nombres: "Ana", Apellidos: "Ruiz", Cedula: "1700000001", Rol: "RESIDENTE"},
	}

	first := BuildDirectory(entries)
	second := BuildDirectory(entries)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("BuildDirectory() not idempotent")
	}
	if !reflect.DeepEqual(first.Usernames(), []string{"ar", "jcpg"}) {
		t.Fatalf("Usernames() = %v", first.Usernames())
	}
}

func TestRoleGate(t *testing.T) {
	resident := Identity{Role: RoleResidente}
	if err := resident.CheckTipo(prescription.TipoConsultaExterna); !errors.Is(err, ErrTipoNotPermitted) {
		t.Fatalf("CheckTipo(CE) error = %v, want ErrTipoNotPermitted", err)
	}
	for _, tipo := range []prescription.Tipo{prescription.TipoEmergencia, prescription.TipoHospitalizacion} {
		if err := resident.CheckTipo(tipo); err != nil {
			t.Fatalf("CheckTipo(%s) error = %v", tipo, err)
		}
	}

	specialist := Identity{Role: RoleEspecialista}
	for _, tipo := range prescription.Tipos() {
		if err := specialist.CheckTipo(tipo); err != nil {
			t.Fatalf("specialist CheckTipo(%s) error = %v", tipo, err)
		}
	}
}

func TestRosterFromTable(t *testing.T) {
	testCases := []struct {
		name   string
		header []string
		row    []string
		want   RosterEntry
	}{
		{
			name:   "canonical headers",
			header: []string{"NOMBRES", "APELLIDOS", "CEDULA", "ESPECIALIDAD", "ROL"},
			row:    []string{"Juan Carlos", "Pérez Gómez", "0102030405", "Pediatría", "Especialista"},
			want:   RosterEntry{"Juan Carlos", "Pérez Gómez", "0102030405", "Pediatría", "Especialista"},
		},
		{
			name:   "alternate spellings",
			header: []string{" Nombre ", "Apellido", "Número de Cédula", "Área", "Cargo"},
			row:    []string{"Ana", "Ruiz", "1700000001", "Emergencia", "Residente"},
			want:   RosterEntry{"Ana", "Ruiz", "1700000001", "Emergencia", "Residente"},
		},
		{
			name:   "cedula substring",
			header: []string{"nombres", "apellidos", "CEDULA DE IDENTIDAD"},
			row:    []string{"Luis", "Mora", "0911111111"},
			want:   RosterEntry{Nombres: "Luis", Apellidos: "Mora", Cedula: "0911111111"},
		},
		{
			name:   "ci column and short row",
			header: []string{"nombres", "apellidos", "ci", "servicio"},
			row:    []string{"Rosa", "Paz", "1000000001"},
			want:   RosterEntry{Nombres: "Rosa", Apellidos: "Paz", Cedula: "1000000001"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := RosterFromTable(tc.header, [][]string{tc.row})
			if len(got) != 1 || got[0] != tc.want {
				t.Fatalf("RosterFromTable() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
