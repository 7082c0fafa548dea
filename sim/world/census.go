package world

import (
	"sync"

	"github.com/brentp/intintmap"
	"github.com/segmentio/fasthash/fnv1a"
)

// Census tracks the live population count per organism kind. Counts are keyed
// by the fnv1a hash of the kind key in a hot int-to-int map, with the hashes
// resolved back to their keys on read. Updates happen from concurrently
// stepping workers whenever organisms divide, so the census is synchronised
// internally.
type Census struct {
	mu     sync.Mutex
	counts *intintmap.Map
	keys   map[uint64]string
}

// NewCensus creates an empty Census.
func NewCensus() *Census {
	return &Census{
		counts: intintmap.New(64, 0.6),
		keys:   make(map[uint64]string),
	}
}

// add records one organism of the kind passed.
func (c *Census) add(key string) {
	h := fnv1a.HashString64(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.keys[h]; !ok {
		c.keys[h] = key
	}
	n, _ := c.counts.Get(int64(h))
	c.counts.Put(int64(h), n+1)
}

// remove records the removal of one organism of the kind passed.
func (c *Census) remove(key string) {
	h := fnv1a.HashString64(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.counts.Get(int64(h)); ok && n > 0 {
		c.counts.Put(int64(h), n-1)
	}
}

// Counts returns the current population count of every organism kind seen so
// far, including kinds whose population has since dropped to zero.
func (c *Census) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := make(map[string]int, len(c.keys))
	for h, key := range c.keys {
		n, _ := c.counts.Get(int64(h))
		m[key] = int(n)
	}
	return m
}
