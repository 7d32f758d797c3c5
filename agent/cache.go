package agent

import (
	"context"
	"sync"
	"time"
)

// Cache holds serialized conversation states under fully qualified keys.
// MemoryCache and RedisCache are the two backends.
type Cache[S any] interface {
	Set(ctx context.Context, key string, val S) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type memoryEntry[S any] struct {
	val     S
	expires time.Time
}

// MemoryCache keeps sessions in process memory. With a TTL, a session that
// has not been written for that long reads as absent, matching RedisCache.
type MemoryCache[S any] struct {
	mu      sync.Mutex
	entries map[string]memoryEntry[S]
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache[S any]() *MemoryCache[S] {
	return NewExpiringMemoryCache[S](0)
}

// NewExpiringMemoryCache drops entries ttl after their last Set. Zero keeps
// them until deleted.
func NewExpiringMemoryCache[S any](ttl time.Duration) *MemoryCache[S] {
	return &MemoryCache[S]{
		entries: map[string]memoryEntry[S]{},
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry[S]{val: val}
	if m.ttl > 0 {
		entry.expires = m.now().Add(m.ttl)
	}
	m.entries[key] = entry
	return nil
}

// lookup returns the live entry for key, evicting it if it has expired.
// Callers hold m.mu.
func (m *MemoryCache[S]) lookup(key string) (memoryEntry[S], bool) {
	entry, ok := m.entries[key]
	if !ok {
		return entry, false
	}
	if !entry.expires.IsZero() && !m.now().Before(entry.expires) {
		delete(m.entries, key)
		return memoryEntry[S]{}, false
	}
	return entry, true
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.lookup(key)
	return entry.val, ok, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}

// Len evicts expired sessions and reports how many remain.
func (m *MemoryCache[S]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		m.lookup(key)
	}
	return len(m.entries)
}
