package tiercache

import (
	"context"
	"time"
)

// Tier names used in statistics and observability events.
const (
	TierMemory = "memory"
	TierScalar = "scalar"
	TierBulk   = "bulk"
	TierRelay  = "relay"
)

// ScalarStore is the synchronous small-object tier: fast, quota-limited,
// shared within one execution context. Implementations
// (Redis, in-memory fakes) must be safe for concurrent use.
type ScalarStore interface {
	// Get retrieves the raw envelope stored under key.
	// Returns (nil, nil) if key is not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a raw envelope. A full store reports an error wrapping
	// ErrScalarCapacity so the orchestrator can run its eviction pass.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes an entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every key currently held by the store. Used by the
	// capacity eviction pass and the cleanup sweep.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// BulkStore is the transactional large-object tier, indexed by key and by
// write timestamp so stale entries can be removed with a range delete
// instead of a full scan.
type BulkStore interface {
	// Get retrieves the raw envelope stored under key.
	// Returns (nil, nil) if key is not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a raw envelope along with its write timestamp.
	Set(ctx context.Context, key string, data []byte, writtenAt time.Time) error

	// Delete removes an entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteOlderThan removes every entry written strictly before cutoff
	// and reports how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}
