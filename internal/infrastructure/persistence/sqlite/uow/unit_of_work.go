package uow

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"recetario/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork on a gorm SQLite handle.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithTx joins an ambient transaction when one is already on ctx; otherwise
// it opens one and commits when fn returns nil.
func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if ports.TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.WithTxContext(ctx, tx))
	})
}
