package cache

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Memory is an in-process summary cache: LRU bounded by maxEntries, with
// every entry expiring ttl after it was stored.
type Memory struct {
	ttl   time.Duration
	clock clockwork.Clock
	cache *lruCache
}

// NewMemory creates an in-process cache. A nil clock uses real time.
func NewMemory(maxEntries int, ttl time.Duration, clock clockwork.Clock) *Memory {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Memory{
		ttl:   ttl,
		clock: clock,
		cache: newLRUCache(maxEntries),
	}
}

func (m *Memory) Get(_ context.Context, key string) (domain.Summary, bool, error) {
	e, ok := m.cache.get(key)
	if !ok {
		return domain.Summary{}, false, nil
	}
	if !m.clock.Now().Before(e.expiresAt) {
		m.cache.delete(key)
		return domain.Summary{}, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, summary domain.Summary) error {
	m.cache.put(key, summary, m.clock.Now().Add(m.ttl))
	return nil
}

// lruCache is a simple thread-safe LRU cache for summaries.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     domain.Summary
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

// get returns a copy of the entry so callers never race with later puts.
func (c *lruCache) get(key string) (entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	c.moveToFront(e)
	return entry{key: e.key, value: e.value, expiresAt: e.expiresAt}, true
}

func (c *lruCache) put(key string, value domain.Summary, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.remove(e)
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
