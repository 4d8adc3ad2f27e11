package cache

import (
	"context"
	"fmt"

	"github.com/solarfin/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backend is a store usable both for cached responses and confirmation tokens
type Backend interface {
	Store
	ConfirmationStore
	Ping(ctx context.Context) error
}

// Ping implements Backend; process memory is always reachable
func (s *InMemoryStore) Ping(context.Context) error { return nil }

// StoreFactory creates the cache backend based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	keyPrefix             string
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithKeyPrefix namespaces every Redis key
func WithKeyPrefix(prefix string) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.keyPrefix = prefix
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisStore connects to Redis and returns a store that owns the client
func (f *StoreFactory) CreateRedisStore(ctx context.Context) (*RedisStore, error) {
	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis cache store: %w", err)
	}
	s := NewRedisStoreWithClient(client, f.keyPrefix)
	s.ownsClient = true
	return s, nil
}

// CreateStore returns a Redis store when Redis is enabled and reachable,
// otherwise the in-memory store if fallback is allowed.
// Confirmation tokens in memory are not shared across replicas.
func (f *StoreFactory) CreateStore(ctx context.Context) (Backend, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory cache store")
		return NewInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore(ctx)
	if err == nil {
		f.logger.Info("Using Redis cache store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory cache store. "+
		"Confirmation tokens will not be shared between replicas.",
		zap.Error(err),
	)
	return NewInMemoryStore(), nil
}

var _ Backend = (*RedisStore)(nil)
