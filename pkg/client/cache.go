package client

import (
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-formflow/pkg/schema"
)

type cacheEntry struct {
	options []schema.EnumValue
	expires time.Time
}

// optionCache keeps option lists per resolved URL until their TTL elapses.
type optionCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newOptionCache(now func() time.Time) *optionCache {
	return &optionCache{entries: make(map[string]cacheEntry), now: now}
}

func (c *optionCache) get(key string) ([]schema.EnumValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return cloneOptions(entry.options), true
}

// put stores options for ttl. A non-positive ttl disables caching.
func (c *optionCache) put(key string, options []schema.EnumValue, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{options: cloneOptions(options), expires: c.now().Add(ttl)}
}

func cloneOptions(options []schema.EnumValue) []schema.EnumValue {
	return slices.Clone(options)
}
