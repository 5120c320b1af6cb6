package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"recetario/internal/bootstrap/config"
	"recetario/internal/bootstrap/database"
	"recetario/internal/bootstrap/logging"
	"recetario/internal/domain/catalog"
	"recetario/internal/domain/identity"
	"recetario/internal/errs"
	"recetario/internal/infrastructure/catalogfile"
	"recetario/internal/infrastructure/netinfo"
	"recetario/internal/infrastructure/persistence/sqlite/kvstore"
	sqliterepo "recetario/internal/infrastructure/persistence/sqlite/repository"
	"recetario/internal/infrastructure/persistence/sqlite/snapshot"
	sqliteuow "recetario/internal/infrastructure/persistence/sqlite/uow"
	"recetario/internal/infrastructure/render"
	"recetario/internal/infrastructure/roster"
	"recetario/internal/infrastructure/viewer"
	"recetario/internal/ports"
	"recetario/internal/usecase/desk"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewPrescriptionRepository,
			fx.As(new(ports.PrescriptionRepository)),
		),
		fx.Annotate(
			sqliterepo.NewSequenceRepository,
			fx.As(new(ports.SequenceRepository)),
		),
		fx.Annotate(
			sqliterepo.NewAuditRepository,
			fx.As(new(ports.AuditRepository)),
		),
		fx.Annotate(
			sqliterepo.NewBackupRepository,
			fx.As(new(ports.BackupRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			kvstore.NewStore,
			fx.As(new(ports.KeyValueStore)),
		),
	),
	fx.Provide(
		fx.Annotate(
			viewer.NewSystemViewer,
			fx.As(new(ports.Viewer)),
		),
	),
	fx.Provide(provideSnapshotter),
	fx.Provide(provideRenderer),
	fx.Provide(provideCodes),
	fx.Provide(provideItems),
	fx.Provide(provideDirectory),
	fx.Provide(provideDesk),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideLogger(lc fx.Lifecycle, cfg config.Config) (*slog.Logger, error) {
	logger, closeFile, err := logging.NewFileLogger(os.Stderr, cfg.Logging.Dir, logging.ParseLevel(cfg.Logging.Level), time.Now())
	if err != nil {
		return nil, errs.Wrap(err, "open log file")
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return closeFile()
		},
	})
	return logger, nil
}

type databaseResult struct {
	fx.Out

	DB       *gorm.DB
	Location database.Location
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (databaseResult, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, location, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return databaseResult{}, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return databaseResult{DB: db, Location: location}, nil
}

func provideApp(cfg config.Config, db *gorm.DB, location database.Location, logger *slog.Logger) *App {
	return &App{
		Config:   cfg,
		DB:       db,
		Location: location,
		Logger:   logger,
	}
}

func provideSnapshotter(db *gorm.DB, location database.Location) ports.Snapshotter {
	return snapshot.NewSnapshotter(db, location.Path)
}

func provideRenderer(cfg config.Config) (ports.DocumentRenderer, error) {
	profile, err := render.LoadProfile(cfg.Document.ProfileFile)
	if err != nil {
		return nil, errs.Wrap(err, "load document profile")
	}
	if cfg.App.Unit != "" && cfg.Document.ProfileFile == "" {
		profile.Institution = cfg.App.Unit
	}
	return render.NewPDFRenderer(profile), nil
}

func provideCodes(ctx context.Context, cfg config.Config) (*catalog.Codes, error) {
	return catalogfile.LoadCodes(ctx, cfg.Catalog.CodesFile)
}

func provideItems(ctx context.Context, cfg config.Config) (*catalog.Items, error) {
	return catalogfile.LoadItems(ctx, cfg.Catalog.ItemsFile)
}

func provideDirectory(ctx context.Context, cfg config.Config) (*identity.Directory, error) {
	return roster.Load(ctx, cfg.Directory.RosterFile)
}

type deskParams struct {
	fx.In

	Config        config.Config
	UnitOfWork    ports.UnitOfWork
	Prescriptions ports.PrescriptionRepository
	Sequences     ports.SequenceRepository
	Audit         ports.AuditRepository
	Backups       ports.BackupRepository
	Snapshotter   ports.Snapshotter
	Renderer      ports.DocumentRenderer
	Viewer        ports.Viewer
	KV            ports.KeyValueStore
	Codes         *catalog.Codes
	Items         *catalog.Items
	Directory     *identity.Directory
}

func provideDesk(p deskParams) (*desk.Service, error) {
	return desk.NewService(desk.Dependencies{
		UnitOfWork:    p.UnitOfWork,
		Prescriptions: p.Prescriptions,
		Sequences:     p.Sequences,
		Audit:         p.Audit,
		Backups:       p.Backups,
		Snapshotter:   p.Snapshotter,
		Renderer:      p.Renderer,
		Viewer:        p.Viewer,
		KV:            p.KV,
		Codes:         p.Codes,
		Items:         p.Items,
		Directory:     p.Directory,
		Settings: desk.Settings{
			Unit:      p.Config.App.Unit,
			OutputDir: p.Config.Storage.OutputDir,
			BackupDir: p.Config.Storage.BackupDir,
		},
		LocalIP: netinfo.LocalIP,
	})
}
