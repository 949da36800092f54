// Package cache provides in-process TTL caches.
//
// A Store never returns an expired value: entries whose age reached their TTL
// are treated as absent and evicted on the next access to that key. Sweep
// (or the janitor started by Start) reclaims memory for keys that are never
// read again. Nothing is persisted; a restart starts empty.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Observer receives cache lookup outcomes. Implemented by monitoring.Metrics.
type Observer interface {
	CacheHit(cache string)
	CacheMiss(cache string)
	CacheEvicted(cache string, n int)
}

type entry[T any] struct {
	value      T
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry[T]) valid(now time.Time) bool {
	return now.Sub(e.insertedAt) < e.ttl
}

// Store is a concurrency-safe map of values with per-entry TTL.
type Store[T any] struct {
	name       string
	defaultTTL time.Duration

	mu       sync.RWMutex
	entries  map[string]entry[T]
	nowFn    func() time.Time
	observer Observer
}

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	now      func() time.Time
	observer Observer
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver reports hits, misses and evictions to obs.
func WithObserver(obs Observer) Option {
	return func(o *storeOptions) {
		o.observer = obs
	}
}

// New creates a store. defaultTTL applies to SetDefault; it falls back to
// five minutes when not positive.
func New[T any](name string, defaultTTL time.Duration, opts ...Option) *Store[T] {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	o := storeOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		name:       name,
		defaultTTL: defaultTTL,
		entries:    make(map[string]entry[T]),
		nowFn:      o.now,
		observer:   o.observer,
	}
}

// Name returns the store's name.
func (s *Store[T]) Name() string {
	return s.name
}

// DefaultTTL returns the TTL used by SetDefault.
func (s *Store[T]) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Get returns the value for key if present and unexpired.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	now := s.nowFn()
	s.mu.RUnlock()

	if ok && e.valid(now) {
		s.hit()
		return e.value, true
	}

	if ok {
		// Lazy eviction; re-check under the write lock in case a fresh
		// value was stored meanwhile.
		s.mu.Lock()
		if cur, still := s.entries[key]; still && !cur.valid(s.nowFn()) {
			delete(s.entries, key)
			s.evicted(1)
		}
		s.mu.Unlock()
	}

	s.miss()
	var zero T
	return zero, false
}

// Set stores value under key for ttl. A non-positive ttl stores nothing and
// removes any existing entry.
func (s *Store[T]) Set(key string, value T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		delete(s.entries, key)
		return
	}
	s.entries[key] = entry[T]{
		value:      value,
		insertedAt: s.nowFn(),
		ttl:        ttl,
	}
}

// SetDefault stores value under key for the store's default TTL.
func (s *Store[T]) SetDefault(key string, value T) {
	s.Set(key, value, s.defaultTTL)
}

// Invalidate removes key. It reports whether an entry was removed.
func (s *Store[T]) Invalidate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// InvalidatePrefix removes every key starting with prefix and returns the
// number removed.
func (s *Store[T]) InvalidatePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included until
// they are evicted.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep evicts all expired entries and returns how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	n := 0
	for key, e := range s.entries {
		if !e.valid(now) {
			delete(s.entries, key)
			n++
		}
	}
	if n > 0 {
		s.evicted(n)
	}
	return n
}

// Start runs Sweep every interval until ctx is done.
func (s *Store[T]) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

func (s *Store[T]) hit() {
	if s.observer != nil {
		s.observer.CacheHit(s.name)
	}
}

func (s *Store[T]) miss() {
	if s.observer != nil {
		s.observer.CacheMiss(s.name)
	}
}

func (s *Store[T]) evicted(n int) {
	if s.observer != nil {
		s.observer.CacheEvicted(s.name, n)
	}
}
