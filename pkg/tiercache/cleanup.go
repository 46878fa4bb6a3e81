package tiercache

import (
	"context"
	"time"
)

// CleanupResult reports what one sweep removed.
type CleanupResult struct {
	MemoryRemoved int
	ScalarRemoved int
	BulkRemoved   int64
}

func (c *Cache) startCleanup() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.RunCleanup(ctx)
			}
		}
	}()
}

// RunCleanup performs one sweep: expired entries leave the memory tier by
// direct iteration, the scalar tier by iterating persisted keys and parsing
// each envelope, and the bulk tier by a timestamp range delete at the
// default-TTL retention cutoff. Exported so deployments can drive the sweep
// from their own scheduler or job queue instead of the built-in ticker.
func (c *Cache) RunCleanup(ctx context.Context) CleanupResult {
	start := time.Now()
	now := c.now()

	var res CleanupResult
	res.MemoryRemoved = c.memory.sweep(now)

	if c.scalar != nil {
		res.ScalarRemoved = c.sweepScalar(ctx, now)
	}

	if c.bulk != nil {
		n, err := c.bulk.DeleteOlderThan(ctx, now.Add(-c.defaultTTL))
		if err != nil {
			c.tierFault(ctx, TierBulk, "cleanup", err)
		} else {
			res.BulkRemoved = n
		}
	}

	c.observer.OnCleanup(ctx, &CleanupEvent{
		MemoryRemoved: res.MemoryRemoved,
		ScalarRemoved: res.ScalarRemoved,
		BulkRemoved:   res.BulkRemoved,
		Duration:      time.Since(start),
	})
	return res
}

func (c *Cache) sweepScalar(ctx context.Context, now time.Time) int {
	keys, err := c.scalar.Keys(ctx)
	if err != nil {
		c.tierFault(ctx, TierScalar, "cleanup", err)
		return 0
	}

	removed := 0
	for _, k := range keys {
		if k == syncSignalKey {
			continue
		}
		raw, err := c.scalar.Get(ctx, k)
		if err != nil || raw == nil {
			continue
		}
		e, derr := decodeEntry(raw)
		if derr != nil || c.invalidReason(e, now) != "" {
			if err := c.scalar.Delete(ctx, k); err != nil {
				c.tierFault(ctx, TierScalar, "cleanup", err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		c.observer.OnEviction(ctx, &EvictionEvent{Tier: TierScalar, Reason: EvictExpired, Count: removed})
	}
	return removed
}
