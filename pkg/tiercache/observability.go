package tiercache

import (
	"context"
	"time"
)

// Observer is the interface for observing cache events.
// Implementations can emit metrics, logs, or traces to their observability
// backend.
//
// All Observer methods are called synchronously on the request path, so
// implementations should be fast and non-blocking. For expensive operations
// (e.g., network calls), consider buffering events and processing them
// asynchronously.
//
// Example implementations:
//   - Prometheus metrics collector
//   - OpenTelemetry tracer
//   - Structured logger (slog)
type Observer interface {
	// OnLookup is called after every Get, hit or miss.
	OnLookup(ctx context.Context, event *LookupEvent)

	// OnWrite is called after every Set fan-out.
	OnWrite(ctx context.Context, event *WriteEvent)

	// OnEviction is called when entries are removed outside an explicit
	// Clear: lazy deletion, the capacity eviction pass, or the sweep.
	OnEviction(ctx context.Context, event *EvictionEvent)

	// OnTierFault is called when a backend operation fails. Faults are
	// absorbed by the orchestrator; this is the only place they surface.
	OnTierFault(ctx context.Context, event *TierFaultEvent)

	// OnCleanup is called after each cleanup sweep.
	OnCleanup(ctx context.Context, event *CleanupEvent)
}

// LookupEvent is emitted for every Get.
type LookupEvent struct {
	Key     string
	Tier    string // tier that served the hit; empty on a full miss
	Hit     bool
	Latency time.Duration
}

// WriteEvent is emitted for every Set.
type WriteEvent struct {
	Key      string
	Size     int      // serialized envelope size; 0 when serialization failed
	Tiers    []string // tiers the entry reached
	Duration time.Duration
}

// Eviction reasons.
const (
	EvictExpired  = "expired"
	EvictCapacity = "capacity"
	EvictSchema   = "schema_version"
	EvictCorrupt  = "corrupt"
)

// EvictionEvent is emitted when entries are removed from a tier.
type EvictionEvent struct {
	Tier   string
	Reason string
	Count  int
}

// TierFaultEvent is emitted when a backend operation fails.
type TierFaultEvent struct {
	Tier string
	Op   string
	Err  error
}

// CleanupEvent is emitted after each cleanup sweep.
type CleanupEvent struct {
	MemoryRemoved int
	ScalarRemoved int
	BulkRemoved   int64
	Duration      time.Duration
}

// NoOpObserver is a no-op implementation of Observer.
// Useful as a base for partial implementations.
type NoOpObserver struct{}

func (NoOpObserver) OnLookup(ctx context.Context, event *LookupEvent)       {}
func (NoOpObserver) OnWrite(ctx context.Context, event *WriteEvent)         {}
func (NoOpObserver) OnEviction(ctx context.Context, event *EvictionEvent)   {}
func (NoOpObserver) OnTierFault(ctx context.Context, event *TierFaultEvent) {}
func (NoOpObserver) OnCleanup(ctx context.Context, event *CleanupEvent)     {}

// MultiObserver combines multiple observers into one.
// Events are sent to all observers in order.
type MultiObserver struct {
	Observers []Observer
}

func (m *MultiObserver) OnLookup(ctx context.Context, event *LookupEvent) {
	for _, obs := range m.Observers {
		obs.OnLookup(ctx, event)
	}
}

func (m *MultiObserver) OnWrite(ctx context.Context, event *WriteEvent) {
	for _, obs := range m.Observers {
		obs.OnWrite(ctx, event)
	}
}

func (m *MultiObserver) OnEviction(ctx context.Context, event *EvictionEvent) {
	for _, obs := range m.Observers {
		obs.OnEviction(ctx, event)
	}
}

func (m *MultiObserver) OnTierFault(ctx context.Context, event *TierFaultEvent) {
	for _, obs := range m.Observers {
		obs.OnTierFault(ctx, event)
	}
}

func (m *MultiObserver) OnCleanup(ctx context.Context, event *CleanupEvent) {
	for _, obs := range m.Observers {
		obs.OnCleanup(ctx, event)
	}
}
