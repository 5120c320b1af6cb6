package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/fx"

	"recetario/internal/infrastructure/persistence/sqlite/model"
	"recetario/internal/usecase/desk"
)

func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`database:
  dsn: %[1]s/store/recetas.db
  fallback_dsn: ""
storage:
  output_dir: %[1]s/pdf
  backup_dir: %[1]s/backups
logging:
  dir: ""
`, filepath.ToSlash(dir))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewOpensStoreAndInitializesSchema(t *testing.T) {
	ctx := context.Background()
	configPath := writeConfig(t)

	app, err := New(ctx, configPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = app.Close(ctx) })

	if app.Location.Fallback || filepath.Base(app.Location.Path) != "recetas.db" {
		t.Fatalf("Location = %+v", app.Location)
	}

	for i := 0; i < 2; i++ {
		if err := app.InitSchema(ctx); err != nil {
			t.Fatalf("InitSchema(%d) error = %v", i, err)
		}
	}

	var count int64
	if err := app.DB.Model(&model.Secuencia{}).Count(&count).Error; err != nil {
		t.Fatalf("count sequences: %v", err)
	}
	if count != 3 {
		t.Fatalf("sequences = %d, want 3", count)
	}
}

func TestInitSchemaRequiresContext(t *testing.T) {
	app := &App{}
	if err := app.InitSchema(nil); err == nil {
		t.Fatalf("InitSchema(nil) should fail")
	}
}

func TestModuleGraphIsComplete(t *testing.T) {
	err := fx.ValidateApp(
		Module,
		fx.Provide(func() context.Context { return context.Background() }),
		fx.Provide(
			fx.Annotate(
				func() string { return "" },
				fx.ResultTags(`name:"configFile"`),
			),
		),
		fx.Invoke(func(*App, *desk.Service) {}),
	)
	if err != nil {
		t.Fatalf("fx.ValidateApp() error = %v", err)
	}
}
