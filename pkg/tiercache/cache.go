// Package tiercache implements a multi-tier cache orchestrator: one
// in-process memory tier backed by optional scalar (small-object), bulk
// (large-object), and offline-relay tiers of increasing latency and
// capacity. Reads walk the tiers fastest-first and promote hits upward;
// writes fan out to every eligible tier independently. Backend faults are
// absorbed rather than raised: losing every persistent tier degrades the
// cache to memory-only without callers noticing.
package tiercache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

// Cache is the orchestrator. Construct it with New at the application's
// composition root and share the one instance; Close it at shutdown.
type Cache struct {
	memory    *memoryStore
	scalar    ScalarStore
	bulk      BulkStore
	relay     RelayChannel
	broadcast Broadcaster

	schemaVersion    string
	defaultTTL       time.Duration
	smallThreshold   int
	cleanupInterval  time.Duration
	criticalPrefixes []string
	memoryCapacity   int

	observer Observer
	now      func() time.Time
	stats    *counters

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Cache from the given options and, unless disabled, starts
// the background cleanup sweep. Tiers left unconfigured are skipped for the
// lifetime of the instance.
func New(opts ...Option) *Cache {
	c := &Cache{
		schemaVersion:    DefaultSchemaVersion,
		defaultTTL:       DefaultTTL,
		smallThreshold:   DefaultSmallObjectThreshold,
		cleanupInterval:  DefaultCleanupInterval,
		criticalPrefixes: DefaultCriticalPrefixes,
	}
	for _, o := range opts {
		o.apply(c)
	}
	if c.observer == nil {
		c.observer = NoOpObserver{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.memory = newMemoryStore(c.memoryCapacity)
	c.stats = newCounters()

	c.pushRelayConfig()

	if c.cleanupInterval > 0 {
		c.startCleanup()
	}
	return c
}

// Close stops the cleanup sweep and closes the tiers the cache owns.
func (c *Cache) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	if c.relay != nil {
		_ = c.relay.Close()
	}
	if c.broadcast != nil {
		_ = c.broadcast.Close()
	}
	return nil
}

// Get retrieves the cached value for key. The second return is false when
// no tier holds a valid entry; absence is an ordinary outcome, not an
// error. The only error ever returned is ErrEmptyKey.
func Get[T any](ctx context.Context, c *Cache, key string, opts ...CallOption) (T, bool, error) {
	var zero T
	e, err := c.lookup(ctx, key, applyCallOptions(opts))
	if err != nil {
		return zero, false, err
	}
	if e == nil {
		return zero, false, nil
	}
	if e.Data == nil {
		// Memory-only entry for a value that could not be serialized.
		if v, ok := e.Value.(T); ok {
			return v, true, nil
		}
		return zero, false, nil
	}
	if v, ok := e.Value.(T); ok {
		return v, true, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, false, nil
	}
	return v, true, nil
}

// Set writes value under key to every eligible tier: always the memory
// tier, the scalar or bulk tier depending on serialized size, and the
// offline relay when the key matches a critical prefix. Tier failures are
// absorbed; the only error ever returned is ErrEmptyKey.
func Set[T any](ctx context.Context, c *Cache, key string, value T, opts ...CallOption) error {
	var data json.RawMessage
	if b, err := json.Marshal(value); err == nil {
		data = b
	}
	// A marshal failure skips the persistent tiers; the memory tier still
	// serves the value for this process's lifetime.
	return c.store(ctx, key, value, data, applyCallOptions(opts))
}

func (c *Cache) lookup(ctx context.Context, key string, cfg callConfig) (*Entry, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	start := time.Now()
	now := c.now()
	nk := storageKey(namespacedKey(key, cfg.principal))

	// Memory tier
	if e := c.memory.get(nk); e != nil {
		reason := c.invalidReason(e, now)
		if reason == "" {
			c.finishLookup(ctx, key, TierMemory, start)
			return e, nil
		}
		c.memory.delete(nk)
		c.observer.OnEviction(ctx, &EvictionEvent{Tier: TierMemory, Reason: reason, Count: 1})
	}
	c.stats.tierMiss(TierMemory)

	// Scalar tier
	if c.scalar != nil {
		if e, raw := c.fetchPersisted(ctx, TierScalar, nk, now); e != nil {
			c.promote(ctx, nk, e, raw, TierScalar)
			c.finishLookup(ctx, key, TierScalar, start)
			return e, nil
		}
		c.stats.tierMiss(TierScalar)
	}

	// Bulk tier
	if c.bulk != nil {
		if e, raw := c.fetchPersisted(ctx, TierBulk, nk, now); e != nil {
			c.promote(ctx, nk, e, raw, TierBulk)
			c.finishLookup(ctx, key, TierBulk, start)
			return e, nil
		}
		c.stats.tierMiss(TierBulk)
	}

	// Offline relay
	if c.relay != nil {
		raw, err := c.relay.Request(ctx, RelayGet, nk, nil)
		if err == nil && raw != nil {
			if e, derr := decodeEntry(raw); derr == nil && c.invalidReason(e, now) == "" {
				c.promote(ctx, nk, e, raw, TierRelay)
				c.finishLookup(ctx, key, TierRelay, start)
				return e, nil
			}
		}
		// Timeouts are the relay's normal offline behavior, not a fault.
		if err != nil && !errors.Is(err, ErrRelayTimeout) && !errors.Is(err, ErrRelayClosed) {
			c.tierFault(ctx, TierRelay, "get", err)
		}
		c.stats.tierMiss(TierRelay)
	}

	c.stats.miss()
	c.observer.OnLookup(ctx, &LookupEvent{Key: key, Hit: false, Latency: time.Since(start)})
	return nil, nil
}

// fetchPersisted reads and validates one persistent tier, lazily deleting
// anything expired, version-mismatched, or undecodable. It returns the
// entry together with the raw envelope so promotion can reuse the bytes.
func (c *Cache) fetchPersisted(ctx context.Context, tier, nk string, now time.Time) (*Entry, []byte) {
	var raw []byte
	var err error
	if tier == TierScalar {
		raw, err = c.scalar.Get(ctx, nk)
	} else {
		raw, err = c.bulk.Get(ctx, nk)
	}
	if err != nil {
		c.tierFault(ctx, tier, "get", err)
		return nil, nil
	}
	if raw == nil {
		return nil, nil
	}

	e, derr := decodeEntry(raw)
	reason := EvictCorrupt
	if derr == nil {
		reason = c.invalidReason(e, now)
	}
	if reason != "" {
		c.deleteFrom(ctx, tier, nk)
		c.observer.OnEviction(ctx, &EvictionEvent{Tier: tier, Reason: reason, Count: 1})
		return nil, nil
	}
	return e, raw
}

// invalidReason reports why an entry must not be served, or "" if it is
// valid.
func (c *Cache) invalidReason(e *Entry, now time.Time) string {
	if e.SchemaVersion != c.schemaVersion {
		return EvictSchema
	}
	if e.Expired(now) {
		return EvictExpired
	}
	return ""
}

// promote copies a hit upward into every faster tier that already missed.
// The original envelope bytes are reused so the write timestamp, and with
// it the remaining TTL, is preserved rather than extended. Promotion is
// best-effort; failures do not affect the read result.
func (c *Cache) promote(ctx context.Context, nk string, e *Entry, raw []byte, from string) {
	c.memory.set(nk, e)
	if from == TierMemory || from == TierScalar {
		return
	}

	if c.scalar != nil && len(raw) < c.smallThreshold {
		if err := c.scalar.Set(ctx, nk, raw); err != nil {
			c.tierFault(ctx, TierScalar, "promote", err)
		}
	} else if from == TierRelay && c.bulk != nil && len(raw) >= c.smallThreshold {
		if err := c.bulk.Set(ctx, nk, raw, e.WrittenAt); err != nil {
			c.tierFault(ctx, TierBulk, "promote", err)
		}
	}
}

func (c *Cache) finishLookup(ctx context.Context, key, tier string, start time.Time) {
	c.stats.hit(tier)
	c.observer.OnLookup(ctx, &LookupEvent{Key: key, Tier: tier, Hit: true, Latency: time.Since(start)})
}

func (c *Cache) store(ctx context.Context, key string, value any, data json.RawMessage, cfg callConfig) error {
	if key == "" {
		return ErrEmptyKey
	}
	start := time.Now()
	now := c.now()

	ttl := cfg.ttl
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := &Entry{
		Data:          data,
		Value:         value,
		WrittenAt:     now,
		TTL:           ttl,
		SchemaVersion: c.schemaVersion,
		Scoped:        cfg.principal != "",
	}
	nk := storageKey(namespacedKey(key, cfg.principal))

	tiers := []string{TierMemory}
	c.memory.set(nk, e)

	size := 0
	if data != nil {
		if blob, err := encodeEntry(e); err == nil {
			size = len(blob)
			if size < c.smallThreshold {
				if c.scalar != nil && c.writeScalar(ctx, nk, blob) {
					tiers = append(tiers, TierScalar)
				}
			} else if c.bulk != nil {
				if err := c.bulk.Set(ctx, nk, blob, now); err != nil {
					c.tierFault(ctx, TierBulk, "set", err)
				} else {
					tiers = append(tiers, TierBulk)
				}
			}

			// Critical keys additionally ride the relay so they stay
			// reachable offline. A missing relay silently degrades here.
			if c.relay != nil && matchesAny(key, c.criticalPrefixes) {
				_, err := c.relay.Request(ctx, RelaySet, nk, blob)
				switch {
				case err == nil:
					tiers = append(tiers, TierRelay)
				case !errors.Is(err, ErrRelayTimeout) && !errors.Is(err, ErrRelayClosed):
					c.tierFault(ctx, TierRelay, "set", err)
				}
			}
		}
	}

	if !e.Scoped {
		c.announce(ctx, key, now)
	}

	c.observer.OnWrite(ctx, &WriteEvent{Key: key, Size: size, Tiers: tiers, Duration: time.Since(start)})
	return nil
}

// writeScalar stores blob in the scalar tier, recovering once from a
// capacity refusal by evicting the oldest quarter of the tier.
func (c *Cache) writeScalar(ctx context.Context, nk string, blob []byte) bool {
	err := c.scalar.Set(ctx, nk, blob)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrScalarCapacity) {
		c.tierFault(ctx, TierScalar, "set", err)
		return false
	}

	c.evictScalarOldest(ctx)

	if err := c.scalar.Set(ctx, nk, blob); err != nil {
		c.tierFault(ctx, TierScalar, "set", err)
		return false
	}
	return true
}

// evictScalarOldest deletes the oldest 25% of scalar entries by write
// timestamp.
func (c *Cache) evictScalarOldest(ctx context.Context) {
	keys, err := c.scalar.Keys(ctx)
	if err != nil {
		c.tierFault(ctx, TierScalar, "keys", err)
		return
	}

	type aged struct {
		key       string
		writtenAt time.Time
	}
	var entries []aged
	for _, k := range keys {
		if k == syncSignalKey {
			continue
		}
		raw, err := c.scalar.Get(ctx, k)
		if err != nil || raw == nil {
			continue
		}
		e, derr := decodeEntry(raw)
		if derr != nil {
			_ = c.scalar.Delete(ctx, k)
			continue
		}
		entries = append(entries, aged{key: k, writtenAt: e.WrittenAt})
	}
	if len(entries) == 0 {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].writtenAt.Before(entries[j].writtenAt)
	})

	n := (len(entries) + 3) / 4 // oldest 25%, at least one
	for i := 0; i < n; i++ {
		_ = c.scalar.Delete(ctx, entries[i].key)
	}
	c.observer.OnEviction(ctx, &EvictionEvent{Tier: TierScalar, Reason: EvictCapacity, Count: n})
}

// Clear empties every tier and resets statistics. Best-effort: a tier that
// cannot be cleared is skipped without failing the call.
func (c *Cache) Clear(ctx context.Context) {
	c.memory.clear()
	if c.scalar != nil {
		if err := c.scalar.Clear(ctx); err != nil {
			c.tierFault(ctx, TierScalar, "clear", err)
		}
	}
	if c.bulk != nil {
		if err := c.bulk.Clear(ctx); err != nil {
			c.tierFault(ctx, TierBulk, "clear", err)
		}
	}
	if c.relay != nil {
		_, _ = c.relay.Request(ctx, RelayClear, "", nil)
	}
	c.stats.reset()
}

// Stats returns a snapshot of the cache counters. It never mutates cache
// state.
func (c *Cache) Stats() Stats {
	return c.stats.snapshot(c.memory.len())
}

func (c *Cache) deleteFrom(ctx context.Context, tier, nk string) {
	var err error
	switch tier {
	case TierScalar:
		err = c.scalar.Delete(ctx, nk)
	case TierBulk:
		err = c.bulk.Delete(ctx, nk)
	}
	if err != nil {
		c.tierFault(ctx, tier, "delete", err)
	}
}

func (c *Cache) tierFault(ctx context.Context, tier, op string, err error) {
	c.stats.tierFault(tier)
	c.observer.OnTierFault(ctx, &TierFaultEvent{Tier: tier, Op: op, Err: &TierError{Tier: tier, Op: op, Cause: err}})
}

// announce signals sibling contexts that key changed: over the broadcaster
// when one is available, otherwise through the control key in the scalar
// tier, which siblings watch through their own change notifications.
func (c *Cache) announce(ctx context.Context, key string, ts time.Time) {
	sig := SyncSignal{Key: key, Timestamp: ts.UnixMilli()}
	if c.broadcast != nil {
		if err := c.broadcast.Announce(ctx, sig); err == nil {
			return
		}
	}
	if c.scalar == nil {
		return
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		return
	}
	_ = c.scalar.Set(ctx, syncSignalKey, payload)
}

// pushRelayConfig tells the relay host what TTL and schema version this
// orchestrator runs with. Best-effort, like every relay exchange.
func (c *Cache) pushRelayConfig() {
	if c.relay == nil {
		return
	}
	payload, err := json.Marshal(RelayConfigPayload{
		DefaultTTL:    c.defaultTTL,
		SchemaVersion: c.schemaVersion,
	})
	if err != nil {
		return
	}
	_, _ = c.relay.Request(context.Background(), RelayConfig, "", payload)
}
