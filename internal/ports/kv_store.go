package ports

import "context"

// Port: a single-writer key-value medium holding whole JSON values.
// Writes overwrite the full value; there is no merge or compare-and-swap.
type KVStore interface {
	// Return the value under key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Replace the value under key.
	Set(ctx context.Context, key string, value []byte) error
	// Remove key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
