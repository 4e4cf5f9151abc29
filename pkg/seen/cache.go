// Package seen provides the cache of spawn entries that were already
// announced, so a timer still visible in the chat pane is only sent once.
package seen

import (
	"container/list"
	"sync"
	"time"

	"github.com/mvpwatch/mvpwatch/pkg/mvp"
)

// Default bounds for a Cache.
const (
	DefaultMaxEntries = 1000
	DefaultTTL        = 6 * time.Hour
)

// Cache is a TTL-bound LRU of entry keys. It is safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	now   func() time.Time
	ll    *list.List // most recent at front
	items map[mvp.Key]*list.Element
}

type item struct {
	key mvp.Key
	exp time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache holding at most maxEntries keys for ttl each. Zero or
// negative values select the defaults.
func New(maxEntries int, ttl time.Duration, opts ...Option) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		cap:   maxEntries,
		ttl:   ttl,
		now:   time.Now,
		ll:    list.New(),
		items: make(map[mvp.Key]*list.Element),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Contains reports whether key was added and has not expired.
func (c *Cache) Contains(key mvp.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	if c.now().Before(el.Value.(item).exp) {
		return true
	}
	c.remove(el)
	return false
}

// Add records key and reports whether it was new. Adding an existing key
// refreshes its expiry.
func (c *Cache) Add(key mvp.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	exp := now.Add(c.ttl)

	if el, ok := c.items[key]; ok {
		fresh := !now.Before(el.Value.(item).exp)
		el.Value = item{key: key, exp: exp}
		c.ll.MoveToFront(el)
		return fresh
	}

	c.items[key] = c.ll.PushFront(item{key: key, exp: exp})
	c.evict(now)
	return true
}

// Len returns the number of keys held, including expired ones not yet
// evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache) evict(now time.Time) {
	for c.ll.Len() > c.cap {
		c.remove(c.ll.Back())
	}
	for {
		tail := c.ll.Back()
		if tail == nil || now.Before(tail.Value.(item).exp) {
			return
		}
		c.remove(tail)
	}
}

func (c *Cache) remove(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(item).key)
}
