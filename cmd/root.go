package cmd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
)

var (
	cfgFile     string
	userFlag    string
	passwordVal string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "recetario",
	Short:        "Prescription desk for a single clinic",
	Long:         "Issue, store, verify and back up medical prescriptions (CLI + SQLite, no cgo).",
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logger := slog.New(slog.NewTextHandler(rootCmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	ctx = logging.WithLogger(ctx, logger)
	ctx = logging.WithAttrs(ctx, slog.String("app", "recetario"))

	rootCmd.SetContext(ctx)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logging.Error(ctx, "command execution failed", slog.Any("err", errs.Loggable(err)))
		return errs.Wrap(err, "execute root command")
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default ./configs/config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "Username (or RX_USER)")
	rootCmd.PersistentFlags().StringVar(&passwordVal, "password", "", "Credential (or RX_PASSWORD)")
}
