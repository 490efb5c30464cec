// Package metadata stores small key/value pairs in the local SQLite database.
// The session store keeps its persisted record here.
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns the value for key; found is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
}
