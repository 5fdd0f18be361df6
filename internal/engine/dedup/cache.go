// Package dedup holds the process-wide set of entity ids already handled.
package dedup

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Source is the bulk read side of the seen log.
type Source interface {
	SeenIDs(ctx context.Context) ([]string, error)
}

// Cache is the single source of truth for "already handled". It is loaded
// once from the seen log and only grows afterwards; Has never consults the
// log.
type Cache struct {
	src Source
	log *zap.Logger

	mu     sync.RWMutex
	ids    map[string]struct{}
	loaded bool
}

// New returns an empty cache backed by src. src may be nil for a cache that
// starts empty.
func New(src Source, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{src: src, log: log, ids: make(map[string]struct{})}
}

// Load reads every previously logged id in one call. A read failure leaves
// the cache empty so a broken log never blocks a run. Only the first call
// does anything.
func (c *Cache) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}
	c.loaded = true
	if c.src == nil {
		return
	}

	ids, err := c.src.SeenIDs(ctx)
	if err != nil {
		c.log.Warn("seen log unreadable, starting with empty cache", zap.Error(err))
		return
	}
	for _, id := range ids {
		if id != "" {
			c.ids[id] = struct{}{}
		}
	}
	c.log.Info("dedup cache loaded", zap.Int("ids", len(c.ids)))
}

// Has reports whether id was loaded or marked.
func (c *Cache) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.ids[id]
	return ok
}

// Mark adds id. Marking twice is a no-op.
func (c *Cache) Mark(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[id] = struct{}{}
}

// Len returns the number of known ids.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
