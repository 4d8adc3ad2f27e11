package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/solarfin/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader is a read-through cache in front of Store. Concurrent misses on the
// same key from the same scope share one load. Store failures degrade to
// loading directly.
type Loader struct {
	store   Store
	group   singleflight.Group
	scope   func(context.Context) string
	metrics *telemetry.NegotiationMetrics
	logger  *zap.Logger

	mu    sync.RWMutex
	epoch uint64
}

// LoaderOption configures a Loader
type LoaderOption func(*Loader)

// WithFlightScope partitions shared loads by the value fn derives from the
// caller's context, so a load only ever serves callers with the same scope.
func WithFlightScope(fn func(context.Context) string) LoaderOption {
	return func(l *Loader) {
		l.scope = fn
	}
}

// NewLoader creates a loader. metrics may be nil.
func NewLoader(store Store, metrics *telemetry.NegotiationMetrics, logger *zap.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:   store,
		scope:   func(context.Context) string { return "" },
		metrics: metrics,
		logger:  logger.Named("cache"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fetch returns the cached value for key, or calls load and caches its result for ttl.
// A caller that gives up stops waiting without failing the others sharing its load.
func (l *Loader) Fetch(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	v, err := l.store.Get(ctx, key)
	if err == nil {
		l.metrics.RecordCacheLookup(ctx, scopeOf(key), true)
		return v, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l.logger.Warn("Cache read failed, loading directly", zap.String("key", key), zap.Error(err))
	}
	l.metrics.RecordCacheLookup(ctx, scopeOf(key), false)

	epoch := l.currentEpoch()
	flight := strconv.FormatUint(epoch, 10) + "\x00" + l.scope(ctx) + "\x00" + key
	ch := l.group.DoChan(flight, func() (any, error) {
		lctx := context.WithoutCancel(ctx)
		body, err := load(lctx)
		if err != nil {
			return nil, err
		}
		l.storeIfCurrent(lctx, key, body, ttl, epoch)
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Store writes body under key
func (l *Loader) Store(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	return l.store.Set(ctx, key, body, ttl)
}

// Invalidate removes keys. Loads already in flight finish for their callers
// but no longer write to the store, and the next Fetch starts a fresh load.
func (l *Loader) Invalidate(ctx context.Context, keys ...string) error {
	l.mu.Lock()
	l.epoch++
	l.mu.Unlock()
	return l.store.Delete(ctx, keys...)
}

func (l *Loader) currentEpoch() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.epoch
}

// storeIfCurrent writes body unless an invalidation happened since the load began.
// The read lock is held across Set so Invalidate cannot slip between check and write.
func (l *Loader) storeIfCurrent(ctx context.Context, key string, body []byte, ttl time.Duration, epoch uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.epoch != epoch {
		l.logger.Debug("Skipping cache write after invalidation", zap.String("key", key))
		return
	}
	if err := l.store.Set(ctx, key, body, ttl); err != nil {
		l.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// scopeOf distinguishes viewer-scoped list keys from shared entity keys
func scopeOf(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return "list"
		}
	}
	return "entity"
}
