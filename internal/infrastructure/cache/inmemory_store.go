package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultCleanupInterval = 30 * time.Second

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// InMemoryStore implements Store and ConfirmationStore in process memory.
// Suitable for single-instance deployments and tests; state is not shared across replicas.
type InMemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryStore creates the store and starts its cleanup goroutine
func NewInMemoryStore() *InMemoryStore {
	s := &InMemoryStore{
		entries:  make(map[string]memEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop()
	return s
}

// Get implements Store
func (s *InMemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.expired(s.now()) {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), e.value...), nil
}

// Set implements Store. A non-positive ttl never expires.
func (s *InMemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.entry(value, ttl)
	return nil
}

// Delete implements Store
func (s *InMemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// Issue implements ConfirmationStore
func (s *InMemoryStore) Issue(_ context.Context, scope string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[confirmationKey(token)] = s.entry([]byte(scope), ttl)
	return token, nil
}

// Consume implements ConfirmationStore
func (s *InMemoryStore) Consume(_ context.Context, scope, token string) error {
	key := confirmationKey(token)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	delete(s.entries, key)
	if !ok || e.expired(s.now()) || string(e.value) != scope {
		return ErrTokenNotFound
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryStore) entry(value []byte, ttl time.Duration) memEntry {
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

func (s *InMemoryStore) cleanupLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, k)
		}
	}
}

func confirmationKey(token string) string {
	return "confirm:" + token
}

var (
	_ Store             = (*InMemoryStore)(nil)
	_ ConfirmationStore = (*InMemoryStore)(nil)
)
