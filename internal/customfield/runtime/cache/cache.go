package cache

import (
	"context"
	"sync"
	"time"

	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/pkg/customfield"
	"github.com/faciam-dev/crmfields/pkg/metrics"
)

// Cache keeps the field definitions of each entity type in memory and
// serves them as a registry.Source.
type Cache struct {
	src      registry.Source
	mu       sync.RWMutex
	byEntity map[customfield.EntityType][]customfield.FieldDefinition
}

// New wraps src. When interval is positive every cached entity type is
// reloaded on that period until ctx is done.
func New(ctx context.Context, src registry.Source, interval time.Duration) *Cache {
	c := &Cache{src: src, byEntity: make(map[customfield.EntityType][]customfield.FieldDefinition)}
	if interval > 0 {
		go c.start(ctx, interval)
	}
	return c
}

func (c *Cache) start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.reload(ctx)
		}
	}
}

func (c *Cache) reload(ctx context.Context) {
	c.mu.RLock()
	ets := make([]customfield.EntityType, 0, len(c.byEntity))
	for et := range c.byEntity {
		ets = append(ets, et)
	}
	c.mu.RUnlock()
	for _, et := range ets {
		defs, err := c.src.Fields(ctx, et)
		if err != nil {
			continue
		}
		c.mu.Lock()
		c.byEntity[et] = defs
		c.mu.Unlock()
	}
}

// Fields returns the cached definitions of et, loading them on a miss.
// Source errors are returned and nothing is cached.
func (c *Cache) Fields(ctx context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error) {
	c.mu.RLock()
	defs, ok := c.byEntity[et]
	c.mu.RUnlock()
	if ok {
		metrics.CacheHits.Inc()
		return clone(defs), nil
	}
	metrics.CacheMisses.Inc()
	defs, err := c.src.Fields(ctx, et)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.byEntity[et] = defs
	c.mu.Unlock()
	return clone(defs), nil
}

// Invalidate drops the cached entry of et.
func (c *Cache) Invalidate(et customfield.EntityType) {
	c.mu.Lock()
	delete(c.byEntity, et)
	c.mu.Unlock()
}

func clone(defs []customfield.FieldDefinition) []customfield.FieldDefinition {
	out := make([]customfield.FieldDefinition, len(defs))
	copy(out, defs)
	return out
}
