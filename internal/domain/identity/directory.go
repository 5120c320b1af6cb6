package identity

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"recetario/internal/domain/prescription"
)

var (
	ErrAuthenticationFailed = errors.New("usuario o contraseña inválidos")
	ErrTipoNotPermitted     = errors.New("tipo de receta no permitido para el rol")
)

type Role string

const (
	RoleResidente    Role = "RESIDENTE"
	RoleEspecialista Role = "ESPECIALISTA"
)

const DefaultSpecialty = "MEDICO ESPECIALISTA"

// AllowedTipos lists the categories a role may issue. Residents cannot
// issue outpatient prescriptions.
func (r Role) AllowedTipos() []prescription.Tipo {
	if r == RoleResidente {
		return []prescription.Tipo{prescription.TipoEmergencia, prescription.TipoHospitalizacion}
	}
	return prescription.Tipos()
}

func (r Role) Permits(tipo prescription.Tipo) bool {
	for _, allowed := range r.AllowedTipos() {
		if allowed == tipo {
			return true
		}
	}
	return false
}

// ParseRole maps a free-text roster cell to a role.
func ParseRole(raw string) Role {
	if strings.Contains(strings.ToUpper(raw), "RESID") {
		return RoleResidente
	}
	return RoleEspecialista
}

// Identity is an authenticated clinician.
type Identity struct {
	Username     string
	Nombres      string
	Apellidos    string
	DisplayName  string
	Especialidad string
	Role         Role
}

// CheckTipo returns ErrTipoNotPermitted when the identity's role excludes tipo.
func (i Identity) CheckTipo(tipo prescription.Tipo) error {
	if i.Role.Permits(tipo) {
		return nil
	}
	return fmt.Errorf("%w: %s no puede emitir %s", ErrTipoNotPermitted, i.Role, tipo)
}

// RosterEntry is one usable row of the staff roster.
type RosterEntry struct {
	Nombres      string
	Apellidos    string
	Cedula       string
	Especialidad string
	Rol          string
}

type account struct {
	credential string
	identity   Identity
}

// Directory is the read-only username lookup built once per process.
type Directory struct {
	accounts map[string]account
}

// BuildDirectory derives usernames from the roster. Rows without credential
// or without any name are skipped; later rows win on username collisions.
func BuildDirectory(entries []RosterEntry) *Directory {
	d := &Directory{accounts: make(map[string]account, len(entries))}
	for _, e := range entries {
		nombres := strings.TrimSpace(e.Nombres)
		apellidos := strings.TrimSpace(e.Apellidos)
		cedula := strings.TrimSpace(e.Cedula)
		if cedula == "" || (nombres == "" && apellidos == "") {
			continue
		}

		especialidad := strings.ToUpper(strings.TrimSpace(e.Especialidad))
		if especialidad == "" {
			especialidad = DefaultSpecialty
		}

		username := ContractionUsername(nombres, apellidos)
		d.accounts[username] = account{
			credential: cedula,
			identity: Identity{
				Username:     username,
				Nombres:      nombres,
				Apellidos:    apellidos,
				DisplayName:  strings.TrimSpace(nombres + " " + apellidos),
				Especialidad: especialidad,
				Role:         ParseRole(e.Rol),
			},
		}
	}
	return d
}

// Authenticate normalizes the username and compares the credential exactly.
func (d *Directory) Authenticate(username, credential string) (Identity, error) {
	if d == nil {
		return Identity{}, ErrAuthenticationFailed
	}
	acc, ok := d.accounts[NormalizeText(username)]
	if !ok || acc.credential != strings.TrimSpace(credential) {
		return Identity{}, ErrAuthenticationFailed
	}
	return acc.identity, nil
}

func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.accounts)
}

// Usernames returns the directory keys in sorted order.
func (d *Directory) Usernames() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.accounts))
	for u := range d.accounts {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the identity for an already-normalized username.
func (d *Directory) Lookup(username string) (Identity, bool) {
	if d == nil {
		return Identity{}, false
	}
	acc, ok := d.accounts[username]
	return acc.identity, ok
}
