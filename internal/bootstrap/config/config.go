package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Document  DocumentConfig  `mapstructure:"document"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	// Unit is the health unit printed on every document.
	Unit string `mapstructure:"unit"`
}

type DatabaseConfig struct {
	Driver        string `mapstructure:"driver"`
	DSN           string `mapstructure:"dsn"`
	FallbackDSN   string `mapstructure:"fallback_dsn"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	BackupDir string `mapstructure:"backup_dir"`
}

type LoggingConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

type CatalogConfig struct {
	CodesFile string `mapstructure:"codes_file"`
	ItemsFile string `mapstructure:"items_file"`
}

type DirectoryConfig struct {
	RosterFile string `mapstructure:"roster_file"`
}

type DocumentConfig struct {
	ProfileFile string `mapstructure:"profile_file"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if strings.TrimSpace(cfg.Storage.OutputDir) == "" {
		return Config{}, errors.New("storage.output_dir is required")
	}

	cfg.Storage.OutputDir = ExpandHome(cfg.Storage.OutputDir)
	cfg.Storage.BackupDir = ExpandHome(cfg.Storage.BackupDir)
	cfg.Logging.Dir = ExpandHome(cfg.Logging.Dir)
	cfg.Catalog.CodesFile = ExpandHome(cfg.Catalog.CodesFile)
	cfg.Catalog.ItemsFile = ExpandHome(cfg.Catalog.ItemsFile)
	cfg.Directory.RosterFile = ExpandHome(cfg.Directory.RosterFile)
	cfg.Document.ProfileFile = ExpandHome(cfg.Document.ProfileFile)

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("output_dir", cfg.Storage.OutputDir),
	)

	return cfg, nil
}

// ExpandHome resolves a leading "~" against the user's home directory.
// Paths that cannot be expanded are returned unchanged.
func ExpandHome(path string) string {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "recetario")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.unit", "HOSPITAL BÁSICO DE CAYAMBE")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "~/RecetasApp/recetas.db")
	v.SetDefault("database.fallback_dsn", "data/recetas.db")
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("storage.output_dir", "~/RecetasApp/recetas_pdf")
	v.SetDefault("storage.backup_dir", "~/RecetasApp/backups")
	v.SetDefault("logging.dir", "~/RecetasApp/logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("catalog.codes_file", "data/cie10.txt")
	v.SetDefault("catalog.items_file", "data/medicamentos.txt")
	v.SetDefault("directory.roster_file", "data/personal.xlsx")
	v.SetDefault("document.profile_file", "")
}
