package catalogfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/catalog"
	"recetario/internal/errs"
)

const maxDescriptionRunes = 200

var (
	codePattern    = regexp.MustCompile(`\b([A-Z]\d{2}(?:\.\d+)?)\b`)
	leadingNonWord = regexp.MustCompile(`^[^\p{L}\p{N}_]+`)
)

// LoadCodes reads the diagnosis catalog at path. Lines are scanned for a code
// followed by its description; when that yields nothing the file is read as
// CSV with code/codigo and desc/descripcion columns. An unreadable or empty
// source falls back to the built-in codes.
func LoadCodes(ctx context.Context, path string) (*catalog.Codes, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "catalog.codes"), slog.String("path", path))

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Warn(logCtx, "codes file not found, using built-in codes")
		} else {
			logging.Warn(logCtx, "codes file unreadable, using built-in codes", slog.Any("err", errs.Loggable(err)))
		}
		return catalog.DefaultCodes(), nil
	}

	entries := scanCodeLines(string(raw))
	if len(entries) == 0 {
		entries = readCodesCSV(string(raw))
	}
	if len(entries) == 0 {
		logging.Warn(logCtx, "codes file yielded no entries, using built-in codes")
		return catalog.DefaultCodes(), nil
	}

	logging.Info(logCtx, "codes loaded", slog.Int("count", len(entries)))
	return catalog.NewCodes(entries), nil
}

func scanCodeLines(text string) []catalog.Entry {
	var out []catalog.Entry
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m := codePattern.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		code := line[m[2]:m[3]]
		desc := leadingNonWord.ReplaceAllString(line[m[3]:], "")
		if idx := strings.Index(desc, "  "); idx >= 0 {
			desc = desc[:idx]
		}
		desc = strings.TrimSpace(desc)
		if utf8.RuneCountInString(desc) <= 3 {
			continue
		}
		out = append(out, catalog.Entry{Code: code, Description: clip(desc, maxDescriptionRunes)})
	}
	return out
}

func readCodesCSV(text string) []catalog.Entry {
	records, err := readDelimited(text, ',')
	if err != nil || len(records) < 2 {
		return nil
	}

	header := normalizeHeader(records[0])
	codeCol := indexOf(header, "code", "codigo", "código")
	descCol := indexOf(header, "desc", "descripcion", "descripción", "description")
	if codeCol < 0 || descCol < 0 {
		return nil
	}

	var out []catalog.Entry
	for _, rec := range records[1:] {
		if codeCol >= len(rec) || descCol >= len(rec) {
			continue
		}
		code := strings.TrimSpace(rec[codeCol])
		desc := strings.TrimSpace(rec[descCol])
		if code == "" || desc == "" {
			continue
		}
		out = append(out, catalog.Entry{Code: code, Description: clip(desc, maxDescriptionRunes)})
	}
	return out
}

// LoadItems reads the medication list at path. The file is pipe- or
// comma-delimited; the nombre column is used when a header names it,
// otherwise the first column. An unreadable file yields an empty list.
func LoadItems(ctx context.Context, path string) (*catalog.Items, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "catalog.items"), slog.String("path", path))

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Warn(logCtx, "medications file not found, list is empty")
		} else {
			logging.Warn(logCtx, "medications file unreadable, list is empty", slog.Any("err", errs.Loggable(err)))
		}
		return catalog.NewItems(nil), nil
	}

	text := strings.TrimPrefix(string(raw), "\ufeff")
	sep := ','
	if firstLine, _, _ := strings.Cut(text, "\n"); strings.Contains(firstLine, "|") {
		sep = '|'
	}

	records, err := readDelimited(text, sep)
	if err != nil {
		logging.Warn(logCtx, "medications file partially unreadable", slog.Any("err", errs.Loggable(err)))
	}
	if len(records) == 0 {
		return catalog.NewItems(nil), nil
	}

	col := 0
	rows := records
	if idx := indexOf(normalizeHeader(records[0]), "nombre"); idx >= 0 {
		col = idx
		rows = records[1:]
	}

	names := make([]string, 0, len(rows))
	for _, rec := range rows {
		if col < len(rec) {
			names = append(names, rec[col])
		}
	}

	items := catalog.NewItems(names)
	logging.Info(logCtx, "medications loaded", slog.Int("count", items.Len()))
	return items, nil
}

// readDelimited parses leniently and keeps the rows read before a parse error.
func readDelimited(text string, sep rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	r.Comma = sep
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return out, err
		}
		out = append(out, rec)
	}
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

func indexOf(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			if h == name {
				return i
			}
		}
	}
	return -1
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
