// Package cache holds the upstream response cache and the confirmation token store.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned by Store.Get for absent or expired keys
	ErrCacheMiss = errors.New("cache: miss")
	// ErrTokenNotFound is returned when a confirmation token is unknown, expired or issued for another scope
	ErrTokenNotFound = errors.New("cache: confirmation token not found")
)

// Store is a byte-oriented key/value store with per-key expiry
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// ConfirmationStore issues single-use tokens bound to a scope string
type ConfirmationStore interface {
	Issue(ctx context.Context, scope string, ttl time.Duration) (string, error)
	// Consume atomically removes the token and fails with ErrTokenNotFound
	// unless it was issued for scope and has not expired.
	Consume(ctx context.Context, scope, token string) error
}
