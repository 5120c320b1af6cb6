package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"recetario/internal/bootstrap/config"
	"recetario/internal/bootstrap/database"
	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
	"recetario/internal/infrastructure/persistence/schema"
)

type App struct {
	Config   config.Config
	DB       *gorm.DB
	Location database.Location
	Logger   *slog.Logger
}

func New(ctx context.Context, configFile string) (*App, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "loading application config", slog.String("config_file", configFile))

	cfg, err := config.Load(logCtx, configFile)
	if err != nil {
		return nil, errs.Wrap(err, "load config")
	}

	db, location, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, errs.Wrap(err, "open database")
	}

	logging.Info(logCtx, "application bootstrap completed",
		slog.String("database_path", location.Path),
		slog.Bool("fallback", location.Fallback),
	)

	return &App{
		Config:   cfg,
		DB:       db,
		Location: location,
		Logger:   logging.Logger(ctx),
	}, nil
}

// InitSchema creates missing tables and columns and seeds the counters. It
// is safe to run on every start.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema initialization")

	if err := schema.Initialize(ctx, a.DB); err != nil {
		return errs.Wrap(err, "initialize schema")
	}

	logging.Info(logCtx, "schema initialization completed", slog.String("database_path", a.Location.Path))
	return nil
}

func (a *App) Close(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	sqlDB, err := a.DB.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}

	if err := sqlDB.Close(); err != nil {
		return errs.Wrap(err, "close sql db")
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "bootstrap.app")), "database connection closed")
	return nil
}
