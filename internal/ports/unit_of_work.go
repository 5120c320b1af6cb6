package ports

import "context"

// Tx is an opaque handle to an open store transaction. The persistence
// adapter decides the concrete type.
type Tx interface{}

// UnitOfWork scopes several repository calls into one store transaction.
// fn returning an error rolls everything back; nil commits.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// WithTxContext stores a transaction handle in context so repositories join it.
func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the ambient transaction, or nil outside a unit of work.
func TxFromContext(ctx context.Context) Tx {
	return ctx.Value(txKey{})
}
