package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/identity"
	"recetario/internal/errs"
)

// Load reads the staff roster at path (.xlsx or .csv) and builds the login
// directory. A missing file yields an empty directory so the desk still
// starts; every login then fails.
func Load(ctx context.Context, path string) (*identity.Directory, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "identity.roster"), slog.String("path", path))

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Warn(logCtx, "roster file not found, directory is empty")
			return identity.BuildDirectory(nil), nil
		}
		return nil, errs.Wrapf(err, "stat roster %q", path)
	}

	var (
		table [][]string
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		table, err = readCSV(path)
	default:
		table, err = readWorkbook(path)
	}
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		logging.Warn(logCtx, "roster has no rows")
		return identity.BuildDirectory(nil), nil
	}

	entries := identity.RosterFromTable(table[0], table[1:])
	dir := identity.BuildDirectory(entries)
	if skipped := len(entries) - dir.Len(); skipped > 0 {
		logging.Warn(logCtx, "roster rows skipped", slog.Int("skipped", skipped))
	}
	logging.Info(logCtx, "roster loaded", slog.Int("accounts", dir.Len()))
	return dir, nil
}

// readWorkbook returns the rows of the first sheet.
func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, "open roster workbook %q", path)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errs.Wrapf(err, "read sheet %q", sheets[0])
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrapf(err, "open roster %q", path)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errs.Wrapf(err, "parse roster %q", path)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}
