package ports

import (
	"context"

	"recetario/internal/domain/document"
)

// DocumentRenderer writes a finished document to path. Implementations must
// not leave a partial file behind on failure.
type DocumentRenderer interface {
	RenderPrescription(ctx context.Context, doc document.Prescription, path string) error
	RenderInstructions(ctx context.Context, doc document.Instructions, path string) error
}

// Viewer opens a rendered file with the operating system's default program.
type Viewer interface {
	Open(ctx context.Context, path string) error
}
