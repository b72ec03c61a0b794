package index

import (
	"context"
	"sync"
)

// CachedStats wraps a Store and memoises the collection-level statistics
// that scoring asks for on every document. Postings and per-document field
// lengths pass straight through. Call Invalidate after the underlying store
// changes.
type CachedStats struct {
	Store

	mu      sync.Mutex
	gen     uint64
	numDocs *int
	sums    map[string]int64
	counts  map[string]int
}

func NewCachedStats(store Store) *CachedStats {
	return &CachedStats{
		Store:  store,
		sums:   make(map[string]int64),
		counts: make(map[string]int),
	}
}

// Invalidate drops every memoised statistic. Lookups already in flight do
// not repopulate the cache.
func (c *CachedStats) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.numDocs = nil
	c.sums = make(map[string]int64)
	c.counts = make(map[string]int)
}

func (c *CachedStats) SumFieldLengths(ctx context.Context, field string) (int64, error) {
	c.mu.Lock()
	if v, ok := c.sums[field]; ok {
		c.mu.Unlock()
		return v, nil
	}
	gen := c.gen
	c.mu.Unlock()
	v, err := c.Store.SumFieldLengths(ctx, field)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	if gen == c.gen {
		c.sums[field] = v
	}
	c.mu.Unlock()
	return v, nil
}

func (c *CachedStats) DocCount(ctx context.Context, field string) (int, error) {
	c.mu.Lock()
	if v, ok := c.counts[field]; ok {
		c.mu.Unlock()
		return v, nil
	}
	gen := c.gen
	c.mu.Unlock()
	v, err := c.Store.DocCount(ctx, field)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	if gen == c.gen {
		c.counts[field] = v
	}
	c.mu.Unlock()
	return v, nil
}

func (c *CachedStats) NumDocs(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.numDocs != nil {
		v := *c.numDocs
		c.mu.Unlock()
		return v, nil
	}
	gen := c.gen
	c.mu.Unlock()
	v, err := c.Store.NumDocs(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	if gen == c.gen {
		c.numDocs = &v
	}
	c.mu.Unlock()
	return v, nil
}
