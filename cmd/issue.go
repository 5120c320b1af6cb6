package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/prescription"
	"recetario/internal/errs"
	"recetario/internal/usecase/desk"
)

func newIssueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a prescription from a TOML form",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
			ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

			formFile, _ := cmd.Flags().GetString("form")
			tipo, _ := cmd.Flags().GetString("tipo")
			open, _ := cmd.Flags().GetBool("open")
			instructions, _ := cmd.Flags().GetBool("instructions")

			form, err := readForm(formFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if strings.TrimSpace(tipo) != "" {
				form.Tipo = tipo
			}

			result, err := svc.Issue(ctx, session, form)
			if err != nil && !errors.Is(err, desk.ErrRender) {
				var verr *prescription.ValidationError
				if errors.As(err, &verr) {
					writeViolations(cmd.ErrOrStderr(), verr.Violations)
				}
				return errs.Wrap(err, "issue prescription")
			}

			out := cmd.OutOrStdout()
			if _, werr := fmt.Fprintf(out, "issued: %s\nhash: %s\n", result.Record.Numero, result.Record.HashVerificacion); werr != nil {
				return errs.Wrap(werr, "write issue output")
			}
			if err != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "record stored but document not rendered; retry with: recetario render %s\n", result.Record.Numero)
				return errs.Wrap(err, "render prescription")
			}
			_, _ = fmt.Fprintf(out, "document: %s\n", result.PDFPath)

			if instructions && strings.TrimSpace(result.Record.Indicaciones) != "" {
				path, err := svc.RenderInstructions(ctx, session, result.Record.Numero)
				if err != nil {
					return errs.Wrap(err, "render instructions")
				}
				_, _ = fmt.Fprintf(out, "instructions: %s\n", path)
			}
			if open {
				if _, err := svc.OpenDocument(ctx, session, result.Record.Numero, true); err != nil {
					logging.Warn(ctx, "open issued document failed", slog.Any("err", errs.Loggable(err)))
				}
			}
			return nil
		}),
	}

	cmd.Flags().String("form", "", "Path to the TOML form (- reads stdin)")
	cmd.Flags().String("tipo", "", "Override the form tipo (CE|EM|EH)")
	cmd.Flags().Bool("open", false, "Open the rendered document")
	cmd.Flags().Bool("instructions", false, "Also render the indications hand-out")
	_ = cmd.MarkFlagRequired("form")
	return cmd
}

// readForm decodes a TOML form from path, or from stdin when path is "-".
func readForm(path string, stdin io.Reader) (prescription.Form, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return prescription.Form{}, errors.New("form is required (set --form)")
	}

	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return prescription.Form{}, errs.Wrapf(err, "read form %q", path)
	}

	var form prescription.Form
	if err := toml.Unmarshal(raw, &form); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return prescription.Form{}, fmt.Errorf("decode form %q at %d:%d: %w", path, row, col, err)
		}
		return prescription.Form{}, errs.Wrapf(err, "decode form %q", path)
	}
	return form, nil
}

func writeViolations(w io.Writer, violations []prescription.Violation) {
	for _, v := range violations {
		_, _ = fmt.Fprintf(w, "- %s\n", v.Message)
	}
}

func init() {
	rootCmd.AddCommand(newIssueCmd())
}
