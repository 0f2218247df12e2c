package nlu

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"pixelink/internal/types"
)

// ResultCache is a bounded LRU cache of fallback-brain results with per-entry
// TTL. It is shared between the request goroutine and the fallback workers,
// so all access is mutex-guarded. Get returns a deep copy; cached intents are
// never handed out by reference.
type ResultCache struct {
	mu      sync.Mutex
	max     int
	ttl     time.Duration
	order   *list.List // front = most recent
	entries map[string]*list.Element
	now     func() time.Time
}

type cacheEntry struct {
	key       string
	value     types.Intent
	expiresAt time.Time
}

// NewResultCache creates a cache bounded at max entries with the given TTL.
func NewResultCache(max int, ttl time.Duration) *ResultCache {
	if max < 1 {
		max = 1
	}
	return &ResultCache{
		max:     max,
		ttl:     ttl,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

// CacheKey builds the lookup key from the normalized text and the session's
// last intent name, so identical text in a different dialogue context is not
// conflated.
func CacheKey(text, lastIntent string) string {
	return strings.ToLower(types.NormalizeText(text)) + "|" + lastIntent
}

// Get returns a deep copy of the cached intent and refreshes its recency.
// Expired entries are dropped on read.
func (c *ResultCache) Get(key string) (types.Intent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return types.Intent{}, false
	}
	entry := el.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return types.Intent{}, false
	}
	c.order.MoveToFront(el)
	return entry.value.Clone(), true
}

// Set inserts or replaces the entry, evicting the least recently used entry
// when over capacity.
func (c *ResultCache) Set(key string, value types.Intent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := value.Clone()
	expires := c.now().Add(c.ttl)

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = stored
		entry.expiresAt = expires
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, value: stored, expiresAt: expires})
	c.entries[key] = el

	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the current number of entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
