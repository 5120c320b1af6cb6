package cmd

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
	"recetario/internal/usecase/auditconsole"
	"recetario/internal/usecase/desk"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Terminal console commands",
}

var consoleAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse the audit and access logs and run integrity checks",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		numero, _ := cmd.Flags().GetString("numero")
		limit, _ := cmd.Flags().GetInt("limit")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := auditconsole.NewConsoleModel(ctx, svc, auditconsole.Options{
			Session:         session,
			Numero:          numero,
			Limit:           limit,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run audit console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.AddCommand(consoleAuditCmd)
	consoleAuditCmd.Flags().String("numero", "", "Only audit entries for this prescription")
	consoleAuditCmd.Flags().Int("limit", 100, "Maximum entries per log")
	consoleAuditCmd.Flags().Duration("refresh-interval", 0, "Auto refresh interval (0 disables)")
}
