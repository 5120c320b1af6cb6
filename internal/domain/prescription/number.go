package prescription

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatNumber renders "<TIPO>-<year>-<counter:06d>".
func FormatNumber(tipo Tipo, year int, counter int64) string {
	return fmt.Sprintf("%s-%04d-%06d", tipo, year, counter)
}

// ParseNumber splits a prescription number into its parts.
func ParseNumber(numero string) (Tipo, int, int64, error) {
	parts := strings.Split(strings.TrimSpace(numero), "-")
	if len(parts) != 3 || len(parts[1]) != 4 || len(parts[2]) < 6 {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidNumber, numero)
	}

	tipo, err := ParseTipo(parts[0])
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidNumber, numero)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidNumber, numero)
	}
	counter, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || counter < 0 {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrInvalidNumber, numero)
	}

	return tipo, year, counter, nil
}
