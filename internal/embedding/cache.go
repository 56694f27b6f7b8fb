package embedding

import (
	"container/list"
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/csplab/linkage/internal/debug"
	linkerrors "github.com/csplab/linkage/internal/errors"
	"github.com/csplab/linkage/internal/similarity"
)

// DefaultCapacity is the number of distinct texts a Cache retains
const DefaultCapacity = 1000

// Cache is a bounded LRU memo in front of a Provider.
// Lookups, inserts and recency updates are serialized by mu; provider calls
// run outside the lock and are coalesced per key.
type Cache struct {
	provider Provider
	capacity int

	mu     sync.Mutex
	items  map[string]*list.Element
	order  *list.List
	hits   int
	misses int

	flight singleflight.Group
}

// cacheEntry represents an entry in the cache
type cacheEntry struct {
	key    string
	vector Vector
}

// Stats is a snapshot of cache counters since construction or the last Clear
type Stats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
	Size   int `json:"size"`
}

// NewCache wraps provider. capacity <= 0 selects DefaultCapacity.
func NewCache(provider Provider, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		provider: provider,
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// GetVector returns the embedding of text, calling the provider at most once
// per distinct normalized text while it stays cached. The provider receives
// the normalized text. Provider failures are returned as *errors.ProviderError
// and are not cached.
//
// Concurrent misses share one provider call, which runs detached from the
// cancellation of whichever caller started it; a caller whose ctx ends first
// gets ctx.Err() while the others still receive the vector.
func (c *Cache) GetVector(ctx context.Context, text string) (Vector, error) {
	key := similarity.Normalize(text)

	c.mu.Lock()
	if v, ok := c.lookup(key); ok {
		c.hits++
		c.mu.Unlock()
		return v.Clone(), nil
	}
	c.misses++
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		// a flight that finished between our miss and Do may already have filled the slot
		c.mu.Lock()
		if v, ok := c.lookup(key); ok {
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		debug.LogEmbed("miss, calling provider for %q\n", key)
		v, err := c.provider.Embed(flightCtx, key)
		if err != nil {
			return nil, asProviderError(err)
		}

		stored := v.Clone()
		c.mu.Lock()
		c.insert(key, stored)
		c.mu.Unlock()
		return stored, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			debug.LogEmbed("coalesced request for %q\n", key)
		}
		return res.Val.(Vector).Clone(), nil
	}
}

// lookup finds key and marks it most recently used. Caller holds mu.
func (c *Cache) lookup(key string) (Vector, bool) {
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).vector, true
}

// insert adds or refreshes key, evicting the least recently used entry when
// over capacity. Caller holds mu.
func (c *Cache) insert(key string, v Vector) {
	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheEntry).vector = v
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, vector: v})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Clear empties the cache and resets counters. In-flight provider calls
// complete normally and insert their result afterwards.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order = list.New()
	c.hits = 0
	c.misses = 0
}

// Stats returns current counters
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Size: c.order.Len()}
}

// Len returns the number of cached vectors
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the maximum number of cached vectors
func (c *Cache) Capacity() int {
	return c.capacity
}

// Contains reports whether text is cached without touching recency
func (c *Cache) Contains(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[similarity.Normalize(text)]
	return ok
}

func asProviderError(err error) error {
	var pe *linkerrors.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return linkerrors.NewProviderError("provider", "embed", err)
}
