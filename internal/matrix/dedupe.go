// ABOUTME: TTL cache of recently seen Matrix event ids
// ABOUTME: Guards against redelivery of events across sync restarts

package matrix

import (
	"sync"
	"time"
)

// seenCache remembers event ids for a TTL so a resync after a dropped
// connection doesn't replay user inputs into the state machine. Size is
// bounded; the oldest entries fall off first.
type seenCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	order   []string
	ttl     time.Duration
	maxSize int
}

func newSeenCache(ttl time.Duration, maxSize int) *seenCache {
	return &seenCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// seen marks the key and reports whether it was already present and
// fresh. The check and the mark are one atomic step.
func (c *seenCache) seen(key string) bool {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	if at, ok := c.entries[key]; ok && now.Sub(at) < c.ttl {
		return true
	}

	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = now

	for len(c.order) > c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	return false
}
