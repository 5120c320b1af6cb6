package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"recetario/internal/bootstrap"
	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
	"recetario/internal/usecase/desk"
)

// initDbCmd represents the initDb command
var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create or upgrade the prescription store",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *desk.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		logging.Info(ctx, "start init-db")

		if err := app.InitSchema(ctx); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		logging.Info(ctx, "init-db finished", slog.String("database_path", app.Location.Path))
		if app.Location.Fallback {
			if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "warning: primary store unavailable, using %s\n", app.Location.Path); err != nil {
				return errs.Wrap(err, "write init-db output")
			}
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema initialized: %s\n", app.Location.Path); err != nil {
			return errs.Wrap(err, "write init-db output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initDbCmd)
}
