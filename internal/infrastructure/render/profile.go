package render

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"recetario/internal/domain/prescription"
)

type tipoStyle struct {
	Name  string `toml:"name"`
	Color [3]int `toml:"color"`
}

// Profile is the document layout: institution banner, title and the
// per-category header colour.
type Profile struct {
	Institution string               `toml:"institution"`
	Title       string               `toml:"title"`
	Tipos       map[string]tipoStyle `toml:"tipos"`
}

func DefaultProfile() Profile {
	return Profile{
		Institution: "HOSPITAL BÁSICO DE CAYAMBE",
		Title:       "RECETA MÉDICA ELECTRÓNICA",
		Tipos: map[string]tipoStyle{
			string(prescription.TipoConsultaExterna): {Name: prescription.TipoConsultaExterna.DisplayName(), Color: [3]int{0, 100, 200}},
			string(prescription.TipoEmergencia):      {Name: prescription.TipoEmergencia.DisplayName(), Color: [3]int{255, 193, 7}},
			string(prescription.TipoHospitalizacion): {Name: prescription.TipoHospitalizacion.DisplayName(), Color: [3]int{220, 53, 69}},
		},
	}
}

// LoadProfile overlays the TOML file at path on the default profile. An empty
// path returns the defaults.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	path = strings.TrimSpace(path)
	if path == "" {
		return profile, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}

	var overlay Profile
	if err := toml.Unmarshal(raw, &overlay); err != nil {
		return Profile{}, fmt.Errorf("parse document profile %q: %w", path, err)
	}
	if err := validateProfile(overlay); err != nil {
		return Profile{}, err
	}

	if s := strings.TrimSpace(overlay.Institution); s != "" {
		profile.Institution = s
	}
	if s := strings.TrimSpace(overlay.Title); s != "" {
		profile.Title = s
	}
	for key, style := range overlay.Tipos {
		tipo := strings.ToUpper(strings.TrimSpace(key))
		base := profile.Tipos[tipo]
		if strings.TrimSpace(style.Name) != "" {
			base.Name = style.Name
		}
		if style.Color != [3]int{} {
			base.Color = style.Color
		}
		profile.Tipos[tipo] = base
	}
	return profile, nil
}

func validateProfile(p Profile) error {
	for key, style := range p.Tipos {
		if _, err := prescription.ParseTipo(key); err != nil {
			return errors.New("tipos." + key + ": unknown prescription type")
		}
		for _, c := range style.Color {
			if c < 0 || c > 255 {
				return errors.New("tipos." + key + ".color components must be within 0-255")
			}
		}
	}
	return nil
}

func (p Profile) style(tipo prescription.Tipo) tipoStyle {
	if s, ok := p.Tipos[string(tipo)]; ok {
		if s.Name == "" {
			s.Name = tipo.DisplayName()
		}
		return s
	}
	return tipoStyle{Name: tipo.DisplayName(), Color: p.Tipos[string(prescription.TipoConsultaExterna)].Color}
}
