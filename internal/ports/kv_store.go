package ports

import "context"

// KeyValueStore keeps small pieces of desk state next to the records, such
// as the outcome of the last integrity verification.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
