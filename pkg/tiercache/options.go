package tiercache

import "time"

// Defaults applied by New when no option overrides them.
const (
	DefaultSchemaVersion        = "v1"
	DefaultTTL                  = 30 * time.Minute
	DefaultSmallObjectThreshold = 1 << 20 // 1 MiB
	DefaultCleanupInterval      = 5 * time.Minute
)

// Option is a functional option for configuring a Cache.
type Option interface {
	apply(*Cache)
}

type optionFunc func(*Cache)

func (f optionFunc) apply(c *Cache) {
	f(c)
}

// WithScalarStore attaches the synchronous small-object tier.
// Without it, small entries live in the memory tier only.
func WithScalarStore(s ScalarStore) Option {
	return optionFunc(func(c *Cache) {
		c.scalar = s
	})
}

// WithBulkStore attaches the transactional large-object tier.
func WithBulkStore(b BulkStore) Option {
	return optionFunc(func(c *Cache) {
		c.bulk = b
	})
}

// WithRelay attaches the offline relay channel. Keys matching the critical
// prefixes are additionally written there.
func WithRelay(r RelayChannel) Option {
	return optionFunc(func(c *Cache) {
		c.relay = r
	})
}

// WithBroadcaster attaches the cross-context change broadcaster.
func WithBroadcaster(b Broadcaster) Option {
	return optionFunc(func(c *Cache) {
		c.broadcast = b
	})
}

// WithSchemaVersion sets the version stamped on every written entry.
// Entries carrying any other version are treated as expired.
func WithSchemaVersion(v string) Option {
	return optionFunc(func(c *Cache) {
		c.schemaVersion = v
	})
}

// WithDefaultTTL sets the TTL applied when a Set carries none.
func WithDefaultTTL(d time.Duration) Option {
	return optionFunc(func(c *Cache) {
		c.defaultTTL = d
	})
}

// WithSmallObjectThreshold sets the serialized-size boundary between the
// scalar and bulk tiers.
func WithSmallObjectThreshold(n int) Option {
	return optionFunc(func(c *Cache) {
		c.smallThreshold = n
	})
}

// WithCleanupInterval sets how often the background sweep runs.
// A non-positive interval disables the background sweep; RunCleanup can
// still be called manually.
func WithCleanupInterval(d time.Duration) Option {
	return optionFunc(func(c *Cache) {
		c.cleanupInterval = d
	})
}

// WithCriticalPrefixes replaces the key prefixes that qualify an entry for
// the offline relay.
func WithCriticalPrefixes(prefixes ...string) Option {
	return optionFunc(func(c *Cache) {
		c.criticalPrefixes = prefixes
	})
}

// WithMemoryCapacity bounds the memory tier to n entries with an LRU
// discipline. Zero leaves it unbounded.
func WithMemoryCapacity(n int) Option {
	return optionFunc(func(c *Cache) {
		c.memoryCapacity = n
	})
}

// WithObserver attaches an observer for cache events.
func WithObserver(o Observer) Option {
	return optionFunc(func(c *Cache) {
		c.observer = o
	})
}

// WithClock replaces the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *Cache) {
		c.now = now
	})
}

// CallOption configures a single Get or Set call.
type CallOption interface {
	applyCall(*callConfig)
}

type callConfig struct {
	principal string
	ttl       time.Duration
}

type callOptionFunc func(*callConfig)

func (f callOptionFunc) applyCall(c *callConfig) {
	f(c)
}

// WithScope marks the call as scoped to one principal. The key is
// namespaced by the principal identifier before hitting any tier, so two
// principals never observe each other's entries.
func WithScope(principal string) CallOption {
	return callOptionFunc(func(c *callConfig) {
		c.principal = principal
	})
}

// WithTTL sets the entry TTL for a Set call. Ignored by Get.
func WithTTL(d time.Duration) CallOption {
	return callOptionFunc(func(c *callConfig) {
		c.ttl = d
	})
}

func applyCallOptions(opts []CallOption) callConfig {
	var cfg callConfig
	for _, o := range opts {
		o.applyCall(&cfg)
	}
	return cfg
}
