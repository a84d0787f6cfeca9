package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is a secure key/value store. Values are opaque bytes.
type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete of a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// GetObject loads and JSON decodes the value stored under key.
func GetObject[T any](ctx context.Context, store Store, key string) (*T, error) {
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", key, err)
	}
	return &v, nil
}

// SetObject JSON encodes v under key. A nil v deletes the key.
func SetObject[T any](ctx context.Context, store Store, key string, v *T) error {
	if v == nil {
		return store.Delete(ctx, key)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return store.Set(ctx, key, data)
}
