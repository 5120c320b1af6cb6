package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText lower-cases, strips diacritics and keeps only [a-z0-9 ].
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContractionUsername takes the first letter of the first two given names and
// the first two family names. Empty input yields "usuario".
func ContractionUsername(nombres, apellidos string) string {
	parts := firstN(strings.Fields(NormalizeText(nombres)), 2)
	parts = append(parts, firstN(strings.Fields(NormalizeText(apellidos)), 2)...)

	var b strings.Builder
	for _, p := range parts {
		b.WriteByte(p[0])
	}
	if b.Len() == 0 {
		return "usuario"
	}
	return b.String()
}

func firstN(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}
