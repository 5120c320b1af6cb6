package prescription

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatInt renders an optional integer; nil becomes "".
func FormatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// FormatFloat renders an optional float with the shortest exact form.
func FormatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ParseInt reads a stored optional integer. Legacy rows may hold "54.0".
func ParseInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return nil, fmt.Errorf("parse integer %q", raw)
	}
	n := int(f)
	return &n, nil
}

func ParseFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", raw, err)
	}
	return &f, nil
}
