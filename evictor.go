package computecache

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/karupanerura/compute-cache/internal/ctxsync"
)

// evictor holds the state shared by eviction passes of one cache.
type evictor struct {
	gate        ctxsync.Gate
	lastCleanup atomic.Int64 // unix nanoseconds
}

func (e *evictor) cooledDown(now time.Time, cooldown time.Duration) bool {
	return now.Sub(time.Unix(0, e.lastCleanup.Load())) >= cooldown
}

// maybeEvict runs an eviction pass when all of these hold:
//   - at least minEntryAge has passed since the previous pass,
//   - no other pass is running (callers never wait for one),
//   - the cache holds more than capacity entries.
func (c *ComputeCache[K, V]) maybeEvict() {
	if !c.evictor.cooledDown(c.clock.Now(), c.minEntryAge) {
		return
	}
	if !c.evictor.gate.TryEnter() {
		return
	}
	defer c.evictor.gate.Leave()

	// another pass may have finished between the cooldown check and TryEnter
	now := c.clock.Now()
	if !c.evictor.cooledDown(now, c.minEntryAge) {
		return
	}
	if c.table.len() <= c.capacity {
		return
	}
	c.evictLocked(now)
}

// Evict runs an eviction pass now, waiting for a running pass to finish first.
// Unlike the pass triggered by Get, it ignores both the cooldown and the capacity:
// the oldest cleanup-percentage-of-capacity entries are removed if they are stale.
// It returns the number of removed entries.
func (c *ComputeCache[K, V]) Evict(ctx context.Context) (int, error) {
	if err := c.evictor.gate.EnterCtx(ctx); err != nil {
		return 0, err
	}
	defer c.evictor.gate.Leave()

	return c.evictLocked(c.clock.Now()), nil
}

// evictLocked removes the stale entries among the globally least recently used ones.
// The evictor gate must be held.
func (c *ComputeCache[K, V]) evictLocked(now time.Time) int {
	limit := int(math.Ceil(c.cleanupPercentage * float64(c.capacity) / 100))
	cutoff := now.Add(-c.minEntryAge).UnixNano()

	candidates := c.table.oldest(limit)
	removed := 0
	for _, cand := range candidates {
		if cand.lastAccess >= cutoff {
			// ordered by lastAccess, so the rest is fresh too
			break
		}
		if c.table.removeIfStale(cand.entry.key, cand.entry, cutoff) {
			removed++
		}
	}

	finished := c.clock.Now()
	c.evictor.lastCleanup.Store(finished.UnixNano())

	size := c.table.len()
	c.metrics.EvictionPass(removed, finished.Sub(now))
	c.metrics.Entries(size)
	c.logger.Debug("eviction pass finished",
		"candidates", len(candidates),
		"removed", removed,
		"entries", size,
	)
	return removed
}
