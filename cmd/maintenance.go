package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"recetario/internal/bootstrap"
	"recetario/internal/domain/backup"
	"recetario/internal/errs"
	"recetario/internal/ports"
	"recetario/internal/usecase/desk"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the store into the backup directory",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		entry, err := svc.RunBackup(cmd.Context(), session.Actor(), backup.KindManual)
		if err != nil {
			return errs.Wrap(err, "create backup")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "backup: %s (%d records)\n", entry.Archivo, entry.Registros); err != nil {
			return errs.Wrap(err, "write backup output")
		}
		return nil
	}),
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup attempts, newest first",
	Args:  cobra.NoArgs,
	RunE: withDesk(func(cmd *cobra.Command, svc *desk.Service) error {
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := svc.ListBackups(cmd.Context(), limit)
		if err != nil {
			return errs.Wrap(err, "list backups")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "FECHA\tTIPO\tESTADO\tREGISTROS\tARCHIVO")
		for _, entry := range entries {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				entry.Fecha.Local().Format("2006-01-02 15:04:05"), entry.Kind, entry.Status, entry.Registros, entry.Archivo)
		}
		return w.Flush()
	}),
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Read the access and audit logs",
}

var logAccessCmd = &cobra.Command{
	Use:   "access",
	Short: "Show the newest access log entries",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		limit, _ := cmd.Flags().GetInt("limit")

		events, err := svc.ListAccessLog(cmd.Context(), session, limit)
		if err != nil {
			return errs.Wrap(err, "list access log")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "FECHA\tUSUARIO\tACCION\tRESULTADO\tIP\tDETALLES")
		for _, event := range events {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				event.FechaHora.Local().Format("2006-01-02 15:04:05"), event.Usuario, event.Accion,
				event.Resultado, event.IPAddress, oneLine(event.Detalles))
		}
		return w.Flush()
	}),
}

var logAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the newest prescription audit entries",
	Args:  cobra.NoArgs,
	RunE: withSession(func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error {
		limit, _ := cmd.Flags().GetInt("limit")
		numero, _ := cmd.Flags().GetString("numero")

		events, err := svc.ListAuditLog(cmd.Context(), session, ports.AuditFilter{
			RecetaNumero: strings.ToUpper(strings.TrimSpace(numero)),
			Limit:        limit,
		})
		if err != nil {
			return errs.Wrap(err, "list audit log")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "FECHA\tRECETA\tACCION\tUSUARIO\tDETALLES")
		for _, event := range events {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				event.FechaHora.Local().Format("2006-01-02 15:04:05"), event.RecetaNumero, event.Accion,
				event.Usuario, oneLine(event.Detalles))
		}
		return w.Flush()
	}),
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Search the diagnosis and medication catalogs",
}

var catalogCodesCmd = &cobra.Command{
	Use:   "codes [query]",
	Short: "Search diagnosis codes by code prefix or description",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *desk.Service) error {
		limit, _ := cmd.Flags().GetInt("limit")
		for _, entry := range svc.SearchCodes(args0(cmd), limit) {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", entry.Code, entry.Description); err != nil {
				return errs.Wrap(err, "write catalog output")
			}
		}
		return nil
	}),
}

var catalogItemsCmd = &cobra.Command{
	Use:   "items [query]",
	Short: "Search medication names",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *desk.Service) error {
		limit, _ := cmd.Flags().GetInt("limit")
		for _, name := range svc.SearchItems(args0(cmd), limit) {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
				return errs.Wrap(err, "write catalog output")
			}
		}
		return nil
	}),
}

func oneLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func init() {
	rootCmd.AddCommand(backupCmd, logCmd, catalogCmd)
	backupCmd.AddCommand(backupListCmd)
	logCmd.AddCommand(logAccessCmd, logAuditCmd)
	catalogCmd.AddCommand(catalogCodesCmd, catalogItemsCmd)

	backupListCmd.Flags().Int("limit", 20, "Maximum entries (0 for all)")
	logAccessCmd.Flags().Int("limit", 100, "Maximum entries")
	logAuditCmd.Flags().Int("limit", 100, "Maximum entries")
	logAuditCmd.Flags().String("numero", "", "Only entries for this prescription")
	catalogCodesCmd.Flags().Int("limit", 20, "Maximum results")
	catalogItemsCmd.Flags().Int("limit", 20, "Maximum results")
}
