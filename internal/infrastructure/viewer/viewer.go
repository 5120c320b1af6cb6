package viewer

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"runtime"

	"recetario/internal/bootstrap/logging"
	"recetario/internal/errs"
)

// SystemViewer hands a file to the desktop's default program.
type SystemViewer struct {
	goos string
}

func NewSystemViewer() *SystemViewer {
	return &SystemViewer{goos: runtime.GOOS}
}

// Open starts the viewer and returns without waiting for it to exit.
func (v *SystemViewer) Open(ctx context.Context, path string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	name, args := openCommand(v.goos, path)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return errs.Wrapf(err, "start %s", name)
	}
	go func() { _ = cmd.Wait() }()

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "viewer")),
		"document opened",
		slog.String("path", path),
		slog.String("program", name),
	)
	return nil
}

func openCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}
