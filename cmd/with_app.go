package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"recetario/internal/bootstrap"
	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
	"recetario/internal/usecase/desk"
)

var errCredentialsRequired = errors.New("credentials required (set --user/--password or RX_USER/RX_PASSWORD)")

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, svc *desk.Service) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var app *bootstrap.App
		var svc *desk.Service
		fxApp := fx.New(
			bootstrap.Module,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&app, &svc),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		cmd.SetContext(logging.WithLogger(cmd.Context(), app.Logger))
		if err := run(cmd, app, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

// withDesk prepares the store for desk operations: schema initialization,
// the startup access entry and the automatic backup check.
func withDesk(run func(cmd *cobra.Command, svc *desk.Service) error) func(cmd *cobra.Command, args []string) error {
	return withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *desk.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}
		if err := svc.Start(ctx); err != nil {
			return err
		}
		if ran, err := svc.RunAutomaticBackupIfDue(ctx); err != nil {
			logging.Warn(ctx, "automatic backup failed", slog.Any("err", errs.Loggable(err)))
		} else if ran {
			logging.Info(ctx, "automatic backup created")
		}

		return run(cmd, svc)
	})
}

// withSession is withDesk plus a login with the command-line credentials.
func withSession(run func(cmd *cobra.Command, svc *desk.Service, session desk.Session) error) func(cmd *cobra.Command, args []string) error {
	return withDesk(func(cmd *cobra.Command, svc *desk.Service) error {
		username, credential := resolveCredentials(userFlag, passwordVal, os.Getenv)
		if username == "" || credential == "" {
			return errCredentialsRequired
		}

		session, err := svc.Login(cmd.Context(), username, credential)
		if err != nil {
			return err
		}
		cmd.SetContext(logging.WithActor(cmd.Context(), session.Identity.Username))
		return run(cmd, svc, session)
	})
}

// resolveCredentials prefers flags over the RX_USER and RX_PASSWORD variables.
func resolveCredentials(user, password string, getenv func(string) string) (string, string) {
	user = strings.TrimSpace(user)
	password = strings.TrimSpace(password)
	if user == "" {
		user = strings.TrimSpace(getenv("RX_USER"))
	}
	if password == "" {
		password = strings.TrimSpace(getenv("RX_PASSWORD"))
	}
	return user, password
}
