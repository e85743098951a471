// Package cache provides a bounded in-memory key-value store with TTL
// expiry and LRU eviction. Agents use it to memoize expensive external
// calls; each agent owns its cache exclusively.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	key        string
	value      any
	insertedAt time.Time
}

// Cache evicts lazily: every Get, Set and Size first drops entries older
// than the TTL, then trims least-recently-used entries until the size bound
// holds. There is no background sweep.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List // front = least recently used, back = most recent

	now func() time.Time // for testing
}

// New creates a cache holding at most maxSize entries, each valid for ttl
// after insertion.
func New(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the value for key if present and fresh, promoting it to most
// recently used. A miss is a normal outcome, never an error.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evict()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToBack(el)
	return el.Value.(*entry).value, true
}

// Set stores value under key. An existing entry is replaced, so the new
// entry becomes most recently used with a fresh insertion time.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evict()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
	el := c.order.PushBack(&entry{key: key, value: value, insertedAt: c.now()})
	c.items[key] = el
}

// Size reports the number of live entries after eviction.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evict()
	return c.order.Len()
}

// Clear unconditionally empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// evict must be called with c.mu held. TTL pass first (age-based, ignoring
// recency), then LRU pass until the size bound holds.
func (c *Cache) evict() {
	now := c.now()

	var expired []*list.Element
	for el := c.order.Front(); el != nil; el = el.Next() {
		if now.Sub(el.Value.(*entry).insertedAt) > c.ttl {
			expired = append(expired, el)
		}
	}
	for _, el := range expired {
		delete(c.items, el.Value.(*entry).key)
		c.order.Remove(el)
	}

	for c.order.Len() > c.maxSize {
		lru := c.order.Front()
		delete(c.items, lru.Value.(*entry).key)
		c.order.Remove(lru)
	}
}
