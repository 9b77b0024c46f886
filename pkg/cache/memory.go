// Package cache memoizes fitting results keyed by a composite hash of
// content, target tokens, strategy, and config.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/gitai-reporter/promptfit/pkg/errors"
	"github.com/gitai-reporter/promptfit/pkg/interfaces"
	"github.com/gitai-reporter/promptfit/pkg/types"
)

// MemoryBackend is a bounded in-memory LRU cache with TTL expiry. The mutex
// guards read-modify-write sequences (get-then-promote, set-then-evict) as a
// unit; the LRU's own locking covers only single operations.
type MemoryBackend struct {
	mu  sync.Mutex
	lru *lru.Cache
	ttl time.Duration

	// now is replaceable for tests
	now func() time.Time
}

// NewMemoryBackend creates an LRU backend bounded to maxEntries. A zero ttl
// disables expiry.
func NewMemoryBackend(maxEntries int, ttl time.Duration) (*MemoryBackend, error) {
	if maxEntries < 1 {
		maxEntries = 1
	}
	cache, err := lru.New(maxEntries)
	if err != nil {
		return nil, errors.NewCacheError("failed to create LRU cache", err)
	}
	return &MemoryBackend{
		lru: cache,
		ttl: ttl,
		now: time.Now,
	}, nil
}

// Get retrieves an entry, promotes it to most recently used, and refreshes
// its access bookkeeping. Expired entries are evicted and reported absent.
func (m *MemoryBackend) Get(key string) (*types.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.lru.Get(key)
	if !ok {
		return nil, false
	}
	entry := value.(*types.CacheEntry)

	if m.ttl > 0 && m.now().Sub(entry.CreatedAt) > m.ttl {
		m.lru.Remove(key)
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessed = m.now()
	return entry, true
}

// Set stores an entry, evicting the least recently used entry on overflow
func (m *MemoryBackend) Set(key string, entry *types.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = m.now()
	}
	entry.Key = key
	m.lru.Add(key, entry)
	return nil
}

// Delete removes an entry by key
func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Remove(key)
	return nil
}

// Keys returns cached keys, most recently used first
func (m *MemoryBackend) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw := m.lru.Keys() // oldest first
	keys := make([]string, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		keys = append(keys, raw[i].(string))
	}
	return keys
}

// Len returns the number of live entries
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Purge removes all entries
func (m *MemoryBackend) Purge() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Purge()
	return nil
}

var _ interfaces.CacheBackend = (*MemoryBackend)(nil)
