package desk

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
	"recetario/internal/ports"
)

// ExportColumns is the header row of the CSV export.
var ExportColumns = []string{"numero", "tipo", "fecha", "paciente", "ci", "cie", "cie_desc", "pdf_path", "estado", "created_by"}

type ExportResult struct {
	Path string
	Rows int
}

// ExportCSV writes every record, newest first, to path. An empty path picks a
// timestamped file in the output directory. Existing files are not replaced.
func (s *Service) ExportCSV(ctx context.Context, session Session, path string) (ExportResult, error) {
	if err := checkContext(ctx); err != nil {
		return ExportResult{}, err
	}
	if !session.valid() {
		return ExportResult{}, errSessionRequired
	}
	logCtx := s.logContext(ctx, "export", session)

	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join(s.settings.OutputDir, fmt.Sprintf("recetas_export_%d.csv", s.now().Unix()))
	}

	rows, err := s.writeExport(ctx, path)
	if err != nil {
		s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessExportarCSV, "Error: "+err.Error(), ports.ResultError)
		return ExportResult{}, err
	}

	s.recordAccessBestEffort(logCtx, session.Actor(), ports.AccessExportarCSV,
		fmt.Sprintf("Exportadas %d recetas a %s", rows, path), ports.ResultExitoso)
	logging.Info(logCtx, "records exported", slog.Int("rows", rows), slog.String("path", path))
	return ExportResult{Path: path, Rows: rows}, nil
}

func (s *Service) writeExport(ctx context.Context, path string) (int, error) {
	records, err := s.prescriptions.ListForExport(ctx)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, errs.Wrapf(err, "create export directory %q", filepath.Dir(path))
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, errs.Wrapf(err, "create export file %q", path)
	}

	w := csv.NewWriter(file)
	_ = w.Write(ExportColumns)
	for _, rec := range records {
		_ = w.Write([]string{
			rec.Numero,
			string(rec.Tipo),
			rec.Fecha,
			rec.Paciente,
			rec.CI,
			rec.CIE,
			rec.CIEDesc,
			rec.PDFPath,
			string(rec.Estado),
			rec.CreatedBy,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = file.Close()
		return 0, errs.Wrap(err, "write export")
	}
	if err := file.Close(); err != nil {
		return 0, errs.Wrap(err, "close export")
	}
	return len(records), nil
}
