// Package backend defines the key/value storage contract behind the cache.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get for an absent key.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by Set when the store is full.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Backend stores opaque values by string key. Values are written whole.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
