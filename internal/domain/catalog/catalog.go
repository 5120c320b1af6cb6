package catalog

import (
	"sort"
	"strings"
)

// Entry is one diagnosis code with its description.
type Entry struct {
	Code        string
	Description string
}

// Codes is an immutable code -> description table.
type Codes struct {
	byCode map[string]string
	order  []string
}

// NewCodes builds the table; codes are upper-cased and later duplicates win.
func NewCodes(entries []Entry) *Codes {
	c := &Codes{byCode: make(map[string]string, len(entries))}
	for _, e := range entries {
		code := strings.ToUpper(strings.TrimSpace(e.Code))
		if code == "" {
			continue
		}
		if _, seen := c.byCode[code]; !seen {
			c.order = append(c.order, code)
		}
		c.byCode[code] = e.Description
	}
	sort.Strings(c.order)
	return c
}

// DefaultCodes is the built-in set used when no catalog source yields entries.
func DefaultCodes() *Codes {
	return NewCodes([]Entry{
		{"Z00.0", "Examen médico general"},
		{"Z51.1", "Quimioterapia para neoplasia"},
		{"I10", "Hipertensión esencial (primaria)"},
		{"E11", "Diabetes mellitus no insulinodependiente"},
		{"J06.9", "Infección aguda de las vías respiratorias superiores, no especificada"},
		{"K59.0", "Estreñimiento"},
		{"M79.3", "Paniculitis, no especificada"},
		{"R50.9", "Fiebre, no especificada"},
		{"R06.0", "Disnea"},
		{"R51", "Cefalea"},
	})
}

func (c *Codes) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Describe returns the standard description for a code, case-insensitively.
func (c *Codes) Describe(code string) (string, bool) {
	if c == nil {
		return "", false
	}
	desc, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return desc, ok
}

// Search matches the query against code and description. Code-prefix hits
// come first, then any substring hit; both groups keep code order.
func (c *Codes) Search(query string, limit int) []Entry {
	if c == nil {
		return nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var prefix, contains []Entry
	for _, code := range c.order {
		desc := c.byCode[code]
		lc := strings.ToLower(code)
		switch {
		case q == "" || strings.HasPrefix(lc, q):
			prefix = append(prefix, Entry{Code: code, Description: desc})
		case strings.Contains(lc, q) || strings.Contains(strings.ToLower(desc), q):
			contains = append(contains, Entry{Code: code, Description: desc})
		}
	}
	return truncate(append(prefix, contains...), limit)
}

// Items is the ordered medication name list.
type Items struct {
	names []string
}

func NewItems(names []string) *Items {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return &Items{names: out}
}

func (i *Items) Len() int {
	if i == nil {
		return 0
	}
	return len(i.names)
}

func (i *Items) All() []string {
	if i == nil {
		return nil
	}
	return append([]string(nil), i.names...)
}

// Search returns names with the query as prefix first, then as substring.
func (i *Items) Search(query string, limit int) []string {
	if i == nil {
		return nil
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var prefix, contains []string
	for _, n := range i.names {
		ln := strings.ToLower(n)
		switch {
		case q == "" || strings.HasPrefix(ln, q):
			prefix = append(prefix, n)
		case strings.Contains(ln, q):
			contains = append(contains, n)
		}
	}
	return truncate(append(prefix, contains...), limit)
}

func truncate[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
