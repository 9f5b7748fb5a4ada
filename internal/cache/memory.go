package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process cache with a fixed TTL and a size bound. When
// full, the oldest inserted entry is evicted regardless of access.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	order   *list.List
	entries map[string]*list.Element
	hits    int64
	misses  int64
	now     func() time.Time
}

// NewMemory creates a memory cache. maxSize values below 1 are raised to 1.
func NewMemory(ttl time.Duration, maxSize int) *Memory {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Memory{
		ttl:     ttl,
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get returns a live entry. Expired entries are removed and count as misses.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false, nil
	}
	e := el.Value.(*entry)
	if m.now().After(e.expiresAt) {
		m.remove(el)
		m.misses++
		return nil, false, nil
	}
	m.hits++
	return e.value, true, nil
}

// Set stores value. Overwriting a key refreshes its TTL but keeps its
// insertion position.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := m.now().Add(m.ttl)
	if el, ok := m.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		return nil
	}

	if m.order.Len() >= m.maxSize {
		m.remove(m.order.Front())
	}
	m.entries[key] = m.order.PushBack(&entry{key: key, value: value, expiresAt: expiresAt})
	return nil
}

// Invalidate removes entries whose key contains substr.
func (m *Memory) Invalidate(_ context.Context, substr string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if strings.Contains(el.Value.(*entry).key, substr) {
			m.remove(el)
			removed++
		}
		el = next
	}
	return removed, nil
}

// Clear drops all entries and resets the counters.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.order.Init()
	m.entries = make(map[string]*list.Element)
	m.hits, m.misses = 0, 0
	return nil
}

// Stats reports the current occupancy and counters.
func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Backend: "memory",
		Size:    m.order.Len(),
		MaxSize: m.maxSize,
		Hits:    m.hits,
		Misses:  m.misses,
		HitRate: hitRate(m.hits, m.misses),
	}, nil
}

// remove must be called with mu held.
func (m *Memory) remove(el *list.Element) {
	m.order.Remove(el)
	delete(m.entries, el.Value.(*entry).key)
}
