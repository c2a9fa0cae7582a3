// Package state persists small client-side records (the session) by key.
package state

import "context"

// Repository stores opaque JSON values by key.
// Load returns domain.ErrNotFound when the key was never saved.
type Repository interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
