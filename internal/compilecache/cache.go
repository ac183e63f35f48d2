// Package compilecache implements the size-bounded incremental-compilation
// artifact cache backing the engine (spec §4.B, §6 "Compilation-cache
// bounds"). Keys and values are opaque byte blobs chosen by the engine;
// the cache only ever reasons about their lengths.
package compilecache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// MaxWeight is the aggregate key+value byte bound enforced across the
// entire cache (spec §3, §6): 32 MiB.
const MaxWeight = 32 * 1024 * 1024

// Cache is a bounded, concurrency-safe key/value store for compiled
// artifacts. Eviction is LFU/LRU hybrid: among the least-recently-touched
// entries, the one touched fewest times is evicted first, so a large
// one-off compile doesn't evict artifacts several extensions share.
type Cache struct {
	mu     sync.Mutex
	lru    *simplelru.LRU[string, *entry]
	weight uint64
}

type entry struct {
	value []byte
	hits  uint64
}

// New returns an empty Cache. The underlying LRU has no entry-count limit
// of its own; eviction is driven entirely by aggregate byte weight.
func New() *Cache {
	// simplelru requires a positive size even though we manage eviction by
	// weight ourselves; a count this large is never reached in practice
	// because the weight bound evicts first.
	l, err := simplelru.NewLRU[string, *entry](1<<31-1, nil)
	if err != nil {
		// Only returns an error for a non-positive size, which is not
		// possible with the constant above.
		panic(err)
	}
	return &Cache{lru: l}
}

func weigh(key string, value []byte) uint64 {
	w := uint64(len(key)) + uint64(len(value))
	const maxUint32 = uint64(^uint32(0))
	if w > maxUint32 {
		return maxUint32
	}
	return w
}

// Get returns the cached value for key, bumping its recency and hit count.
func (c *Cache) Get(key string) (value []byte, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	e.hits++
	return e.value, true
}

// Insert adds or replaces key's value, evicting other entries until the
// aggregate weight is back within MaxWeight if necessary. Insert always
// accepts and reports true: a true result records that the cache took the
// bytes, not that the engine will actually reuse them on the next compile.
func (c *Cache) Insert(key string, value []byte) (accepted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Get(key); ok {
		c.weight -= weigh(key, old.value)
	}
	c.lru.Add(key, &entry{value: value})
	c.weight += weigh(key, value)

	c.evictUntilWithinBound()
	return true
}

// evictUntilWithinBound removes the least-recently-used-and-least-hit
// entries until the aggregate weight fits MaxWeight. Must be called with
// c.mu held.
func (c *Cache) evictUntilWithinBound() {
	for c.weight > MaxWeight && c.lru.Len() > 0 {
		victim := c.pickVictimLocked()
		if victim == "" {
			// Nothing left to pick from; bail rather than loop forever.
			return
		}
		if e, ok := c.lru.Peek(victim); ok {
			c.weight -= weigh(victim, e.value)
		}
		c.lru.Remove(victim)
	}
}

// pickVictimLocked scans the oldest half of the LRU's recency order (the
// part due for eviction first under plain LRU) and returns the key with
// the fewest recorded hits, falling back to the single oldest key when
// there's nothing to compare. Must be called with c.mu held.
func (c *Cache) pickVictimLocked() string {
	keys := c.lru.Keys() // oldest first
	if len(keys) == 0 {
		return ""
	}
	window := len(keys)/2 + 1
	if window > len(keys) {
		window = len(keys)
	}

	var (
		victim   string
		minHits  uint64
		hasPick  bool
	)
	for _, k := range keys[:window] {
		e, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		if !hasPick || e.hits < minHits {
			victim, minHits, hasPick = k, e.hits, true
		}
	}
	if !hasPick {
		return keys[0]
	}
	return victim
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Weight returns the current aggregate key+value byte weight.
func (c *Cache) Weight() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}
