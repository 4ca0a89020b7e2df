// Package tidecache keeps recently used reference tide series in memory so
// repeated correction requests against the same tide file skip the CSV parse.
package tidecache

import (
	"container/list"
	"context"
	"sync"

	"github.com/couchcryptid/shoreline-tide-etl/internal/domain"
)

// Source loads a reference series.
type Source interface {
	LoadReference(ctx context.Context) (domain.Series[float64], error)
}

// Cache is a thread-safe LRU of reference series keyed by caller-chosen
// keys. Cached series are shared and must not be modified.
type Cache struct {
	cache    *lruCache[domain.Series[float64]]
	onLookup func(hit bool)
}

// New creates a cache holding at most maxEntries series. onLookup, if not
// nil, is called on every lookup.
func New(maxEntries int, onLookup func(hit bool)) *Cache {
	return &Cache{cache: newLRUCache[domain.Series[float64]](maxEntries), onLookup: onLookup}
}

// Wrap returns a Source that serves key from the cache and falls back to
// inner on a miss. Failed loads are not cached.
func (c *Cache) Wrap(key string, inner Source) Source {
	return &cachedSource{cache: c, key: key, inner: inner}
}

// Len returns the number of cached series.
func (c *Cache) Len() int { return c.cache.len() }

func (c *Cache) lookup(key string) (domain.Series[float64], bool) {
	s, ok := c.cache.get(key)
	if c.onLookup != nil {
		c.onLookup(ok)
	}
	return s, ok
}

type cachedSource struct {
	cache *Cache
	key   string
	inner Source
}

func (s *cachedSource) LoadReference(ctx context.Context) (domain.Series[float64], error) {
	if series, ok := s.cache.lookup(s.key); ok {
		return series, nil
	}
	series, err := s.inner.LoadReference(ctx)
	if err != nil {
		return series, err
	}
	s.cache.cache.put(s.key, series)
	return series, nil
}

// lruCache is a fixed-size LRU map. The front of order is the most recently
// used entry.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
}

type entry[V any] struct {
	key   string
	value V
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry[V]).value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry[V]).value = value
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&entry[V]{key: key, value: value})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry[V]).key)
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
