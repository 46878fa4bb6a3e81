package tiercache

import "sync"

// Stats is a point-in-time snapshot of cache counters.
// Taking a snapshot never mutates cache state.
type Stats struct {
	Hits       uint64
	Misses     uint64
	TierHits   map[string]uint64
	TierMisses map[string]uint64
	TierFaults map[string]uint64
	HitRate    float64
	EntryCount int
}

// counters accumulates hit/miss totals. Per-tier misses count every tier
// consulted without a valid entry, so one full miss increments several of
// them; Hits and Misses are per-lookup totals.
type counters struct {
	mu         sync.Mutex
	hits       uint64
	misses     uint64
	tierHits   map[string]uint64
	tierMisses map[string]uint64
	tierFaults map[string]uint64
}

func newCounters() *counters {
	return &counters{
		tierHits:   make(map[string]uint64),
		tierMisses: make(map[string]uint64),
		tierFaults: make(map[string]uint64),
	}
}

func (c *counters) hit(tier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits++
	c.tierHits[tier]++
}

func (c *counters) miss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
}

func (c *counters) tierMiss(tier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tierMisses[tier]++
}

func (c *counters) tierFault(tier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tierFaults[tier]++
}

func (c *counters) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
	c.tierHits = make(map[string]uint64)
	c.tierMisses = make(map[string]uint64)
	c.tierFaults = make(map[string]uint64)
}

func (c *counters) snapshot(entryCount int) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		TierHits:   make(map[string]uint64, len(c.tierHits)),
		TierMisses: make(map[string]uint64, len(c.tierMisses)),
		TierFaults: make(map[string]uint64, len(c.tierFaults)),
		EntryCount: entryCount,
	}
	for tier, n := range c.tierHits {
		s.TierHits[tier] = n
	}
	for tier, n := range c.tierMisses {
		s.TierMisses[tier] = n
	}
	for tier, n := range c.tierFaults {
		s.TierFaults[tier] = n
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
