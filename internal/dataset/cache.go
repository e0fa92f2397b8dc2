package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the clean table for a cache key.
type ComputeFunc func(ctx context.Context) (*CleanTable, error)

// cacheEntry is a memoized table and the number of sessions holding it.
type cacheEntry struct {
	table    *CleanTable
	cachedAt time.Time
	holders  int
	hitCount int
}

// Cache memoizes normalized tables by content fingerprint.
//
// Acquire computes a key at most once even under concurrent callers and
// counts the caller as a holder. Release drops a holder; the entry is
// evicted when nobody holds it any more. Failed computations are not cached.
type Cache struct {
	entries   map[string]*cacheEntry
	mutex     sync.Mutex
	group     singleflight.Group
	hitCount  int64
	missCount int64
	logger    *slog.Logger
}

// NewCache creates an empty cache.
func NewCache(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		logger:  logger.With(slog.String("component", "dataset_cache")),
	}
}

// Acquire returns the table for key, running compute when the key is not
// cached. The boolean reports a cache hit: it is false only for the caller
// whose compute produced the table. Every successful Acquire must be
// paired with a Release.
func (c *Cache) Acquire(ctx context.Context, key string, compute ComputeFunc) (*CleanTable, bool, error) {
	c.mutex.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.holders++
		entry.hitCount++
		c.hitCount++
		c.mutex.Unlock()
		return entry.table, true, nil
	}
	c.mutex.Unlock()

	// computed is set only for the caller whose closure runs compute; callers
	// joining an in-flight compute, or finding the entry on re-check, are hits.
	computed := false
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mutex.Lock()
		if entry, ok := c.entries[key]; ok {
			c.mutex.Unlock()
			return entry.table, nil
		}
		c.mutex.Unlock()

		computed = true
		start := time.Now()
		// One caller's cancellation must not fail the others waiting on the key.
		table, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if table == nil {
			return nil, fmt.Errorf("compute for %s returned no table", shortKey(key))
		}

		c.mutex.Lock()
		c.entries[key] = &cacheEntry{table: table, cachedAt: time.Now()}
		c.mutex.Unlock()

		c.logger.DebugContext(ctx, "dataset cached",
			slog.String("key", shortKey(key)),
			slog.Int("rows", table.Len()),
			slog.Duration("duration", time.Since(start)))
		return table, nil
	})
	if err != nil {
		c.mutex.Lock()
		c.missCount++
		c.mutex.Unlock()
		return nil, false, err
	}
	table := v.(*CleanTable)

	c.mutex.Lock()
	entry, ok := c.entries[key]
	if !ok {
		// The last holder released the entry between compute and here.
		entry = &cacheEntry{table: table, cachedAt: time.Now()}
		c.entries[key] = entry
	}
	entry.holders++
	if computed {
		c.missCount++
	} else {
		entry.hitCount++
		c.hitCount++
	}
	c.mutex.Unlock()

	return table, !computed, nil
}

// Release drops one holder of key and evicts the entry when none remain.
// Releasing an unknown key is a no-op.
func (c *Cache) Release(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return
	}
	entry.holders--
	if entry.holders <= 0 {
		delete(c.entries, key)
		c.logger.Debug("dataset evicted",
			slog.String("key", shortKey(key)),
			slog.Int("hits", entry.hitCount),
			slog.Duration("age", time.Since(entry.cachedAt)))
	}
}

// Peek returns a cached table without taking a hold on it.
func (c *Cache) Peek(key string) (*CleanTable, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.table, true
}

// Len returns the number of cached tables.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// GetStats returns cache statistics.
func (c *Cache) GetStats() map[string]interface{} {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	holders := 0
	for _, e := range c.entries {
		holders += e.holders
	}

	total := c.hitCount + c.missCount
	hitRatio := float64(0)
	if total > 0 {
		hitRatio = float64(c.hitCount) / float64(total)
	}

	return map[string]interface{}{
		"entries":    len(c.entries),
		"holders":    holders,
		"hit_count":  c.hitCount,
		"miss_count": c.missCount,
		"hit_ratio":  hitRatio,
	}
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
