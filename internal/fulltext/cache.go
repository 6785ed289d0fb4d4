package fulltext

import (
	"container/list"
	"strconv"
	"sync"
	"time"
)

// defaultCacheTTLSeconds bounds how long a cached result set can be
// served; index writes clear the cache anyway, so the TTL only matters
// for results going stale relative to node liveness, not index content.
const defaultCacheTTLSeconds = 300

type cacheEntry struct {
	key       string
	hits      []Hit
	expiresAt time.Time
}

// queryCache is a size-bounded LRU cache of raw query results with a
// TTL, keyed by query text and result limit. A hit refreshes the entry's
// recency; when full, the least-recently-used entry is evicted.
type queryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
	maxSize int
	ttl     time.Duration
}

func newQueryCache(maxSize int, ttlSeconds int) *queryCache {
	return &queryCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     time.Duration(ttlSeconds) * time.Second,
	}
}

func (c *queryCache) key(q string, maxResults int) string {
	return q + "|" + strconv.Itoa(maxResults)
}

func (c *queryCache) get(q string, maxResults int) ([]Hit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[c.key(q, maxResults)]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, entry.key)
		return nil, false
	}
	c.order.MoveToFront(el)
	return append([]Hit(nil), entry.hits...), true
}

func (c *queryCache) put(q string, maxResults int, hits []Hit) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := c.key(q, maxResults)
	if el, ok := c.entries[k]; ok {
		entry := el.Value.(*cacheEntry)
		entry.hits = hits
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		entry := oldest.Value.(*cacheEntry)
		c.order.Remove(oldest)
		delete(c.entries, entry.key)
	}

	el := c.order.PushFront(&cacheEntry{key: k, hits: hits, expiresAt: time.Now().Add(c.ttl)})
	c.entries[k] = el
}

// clear drops every cached entry, called after an index write so stale
// results never outlive the documents they were computed from.
func (c *queryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
