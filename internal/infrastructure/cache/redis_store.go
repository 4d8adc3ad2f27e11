package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/solarfin/backend/internal/infrastructure/config"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisStore implements Store and ConfirmationStore on Redis, so cached
// responses and confirmations are shared by every replica.
type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	ownsClient bool
}

// NewRedisStoreWithClient wraps an existing client. The caller keeps ownership of it.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) key(k string) string {
	return s.keyPrefix + k
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return v, nil
}

// Set implements Store
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.key(k)
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Issue implements ConfirmationStore
func (s *RedisStore) Issue(ctx context.Context, scope string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, s.key(confirmationKey(token)), scope, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("issue confirmation: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("issue confirmation: token collision")
	}
	return token, nil
}

// Consume implements ConfirmationStore. GETDEL makes the token single-use across replicas.
func (s *RedisStore) Consume(ctx context.Context, scope, token string) error {
	v, err := s.client.GetDel(ctx, s.key(confirmationKey(token))).Result()
	if errors.Is(err, redis.Nil) {
		return ErrTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("consume confirmation: %w", err)
	}
	if v != scope {
		return ErrTokenNotFound
	}
	return nil
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client if this store created it
func (s *RedisStore) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

var (
	_ Store             = (*RedisStore)(nil)
	_ ConfirmationStore = (*RedisStore)(nil)
)
