package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/usecase/desk"
)

var numberCmd = &cobra.Command{
	Use:   "number",
	Short: "Show the number the next prescription of a tipo would receive",
	Args:  cobra.NoArgs,
	RunE: withDesk(func(cmd *cobra.Command, svc *desk.Service) error {
		raw, _ := cmd.Flags().GetString("tipo")

		tipos := prescription.Tipos()
		if strings.TrimSpace(raw) != "" {
			tipo, err := prescription.ParseTipo(raw)
			if err != nil {
				return err
			}
			tipos = []prescription.Tipo{tipo}
		}

		for _, tipo := range tipos {
			numero, err := svc.PeekNumber(cmd.Context(), tipo)
			if err != nil {
				return errs.Wrapf(err, "peek number for %s", tipo)
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tipo, numero); err != nil {
				return errs.Wrap(err, "write number output")
			}
		}
		return nil
	}),
}

var showCmd = &cobra.Command{
	Use:   "show <numero>",
	Short: "Look up a prescription and check its digest",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		open, _ := cmd.Flags().GetBool("open")

		info, err := svc.OpenDocument(cmd.Context(), session, args0(cmd), open)
		if err != nil && !errors.Is(err, desk.ErrDocumentMissing) {
			return errs.Wrap(err, "look up prescription")
		}

		rec := info.Record
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "numero: %s\n", rec.Numero)
		_, _ = fmt.Fprintf(out, "tipo: %s (%s)\n", rec.Tipo, rec.Tipo.DisplayName())
		_, _ = fmt.Fprintf(out, "fecha: %s\n", rec.Fecha)
		_, _ = fmt.Fprintf(out, "paciente: %s (CI %s)\n", rec.Paciente, rec.CI)
		_, _ = fmt.Fprintf(out, "diagnostico: %s %s\n", rec.CIE, rec.CIEDesc)
		_, _ = fmt.Fprintf(out, "prescriptor: %s - %s\n", rec.Prescriptor, rec.PrescriptorEspecialidad)
		_, _ = fmt.Fprintf(out, "medicamentos: %d\n", len(rec.Meds))
		_, _ = fmt.Fprintf(out, "estado: %s\n", rec.Estado)
		if strings.TrimSpace(rec.Modificaciones) != "" {
			_, _ = fmt.Fprintf(out, "modificaciones:\n%s\n", rec.Modificaciones)
		}
		_, _ = fmt.Fprintf(out, "integridad: %s\n", info.Verdict)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "document missing: %s (regenerate with: recetario render %s)\n", info.Path, rec.Numero)
			return nil
		}
		_, _ = fmt.Fprintf(out, "documento: %s\n", info.Path)
		return nil
	}),
}

var renderCmd = &cobra.Command{
	Use:   "render <numero>",
	Short: "Render the document of a stored prescription whose file is missing",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		path, err := svc.RenderDocument(cmd.Context(), session, args0(cmd))
		if err != nil {
			return errs.Wrap(err, "render prescription")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "document: %s\n", path); err != nil {
			return errs.Wrap(err, "write render output")
		}
		return nil
	}),
}

var instructionsCmd = &cobra.Command{
	Use:   "instructions <numero>",
	Short: "Render the patient indications hand-out",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		path, err := svc.RenderInstructions(cmd.Context(), session, args0(cmd))
		if err != nil {
			return errs.Wrap(err, "render instructions")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "instructions: %s\n", path); err != nil {
			return errs.Wrap(err, "write instructions output")
		}
		return nil
	}),
}

var annulCmd = &cobra.Command{
	Use:   "annul <numero>",
	Short: "Mark a prescription as annulled",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		reason, _ := cmd.Flags().GetString("reason")
		numero := args0(cmd)

		if err := svc.AnnulRecord(cmd.Context(), session, numero, reason); err != nil {
			return errs.Wrap(err, "annul prescription")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "annulled: %s\n", strings.ToUpper(numero)); err != nil {
			return errs.Wrap(err, "write annul output")
		}
		return nil
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every prescription to CSV, newest first",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		path, _ := cmd.Flags().GetString("out")

		result, err := svc.ExportCSV(cmd.Context(), session, path)
		if err != nil {
			return errs.Wrap(err, "export prescriptions")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "exported %d records: %s\n", result.Rows, result.Path); err != nil {
			return errs.Wrap(err, "write export output")
		}
		return nil
	}),
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute the digest of every active prescription",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		report, err := svc.VerifyIntegrity(ctx, session)
		if err != nil && !errors.Is(err, desk.ErrIntegrityMismatch) {
			return errs.Wrap(err, "verify integrity")
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, report.Summary())
		preview, more := report.Preview()
		for _, numero := range preview {
			_, _ = fmt.Fprintf(out, "- %s\n", numero)
		}
		if more {
			_, _ = fmt.Fprintf(out, "... y %d más\n", len(report.Corrupted)-len(preview))
		}
		return err
	}),
}

func args0(cmd *cobra.Command) string {
	args := cmd.Flags().Args()
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	rootCmd.AddCommand(numberCmd, showCmd, renderCmd, instructionsCmd, annulCmd, exportCmd, verifyCmd)

	numberCmd.Flags().String("tipo", "", "Tipo to show (CE|EM|EH); all when empty")
	showCmd.Flags().Bool("open", false, "Open the rendered document with the system viewer")
	annulCmd.Flags().String("reason", "", "Reason recorded with the annulment")
	_ = annulCmd.MarkFlagRequired("reason")
	exportCmd.Flags().String("out", "", "Target CSV path (default <output_dir>/recetas_export_<unix>.csv)")
}
