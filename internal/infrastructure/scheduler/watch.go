package scheduler

import (
	"sort"
	"sync"
	"time"
)

// WatchSet is the bounded set of recently viewed entities. Entries not
// touched within ttl expire; when full, the least recently touched entry
// is evicted.
type WatchSet struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	entries map[WatchKey]time.Time
	now     func() time.Time
}

// NewWatchSet creates a watch set holding at most max keys
func NewWatchSet(max int, ttl time.Duration) *WatchSet {
	return &WatchSet{
		max:     max,
		ttl:     ttl,
		entries: make(map[WatchKey]time.Time),
		now:     time.Now,
	}
}

// Touch records a view of key
func (w *WatchSet) Touch(key WatchKey) {
	if w.max <= 0 || key.ID == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if _, ok := w.entries[key]; !ok && len(w.entries) >= w.max {
		w.pruneLocked(now)
		if len(w.entries) >= w.max {
			w.evictOldestLocked()
		}
	}
	w.entries[key] = now
}

// Snapshot drops expired keys and returns the rest, most recently touched first
func (w *WatchSet) Snapshot() []WatchKey {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(w.now())
	keys := make([]WatchKey, 0, len(w.entries))
	for k := range w.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return w.entries[keys[i]].After(w.entries[keys[j]])
	})
	return keys
}

// Len returns the number of watched keys
func (w *WatchSet) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

func (w *WatchSet) pruneLocked(now time.Time) {
	if w.ttl <= 0 {
		return
	}
	for k, seen := range w.entries {
		if now.Sub(seen) > w.ttl {
			delete(w.entries, k)
		}
	}
}

func (w *WatchSet) evictOldestLocked() {
	var (
		oldest WatchKey
		at     time.Time
		found  bool
	)
	for k, seen := range w.entries {
		if !found || seen.Before(at) {
			oldest, at, found = k, seen, true
		}
	}
	if found {
		delete(w.entries, oldest)
	}
}
