package tiercache

import (
	"context"
	"log/slog"
)

// SlogObserver implements Observer using Go's structured logging (log/slog).
// This emits structured logs for all cache events.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	observer := tiercache.NewSlogObserver(logger, slog.LevelInfo)
//	cache := tiercache.New(tiercache.WithObserver(observer))
type SlogObserver struct {
	logger   *slog.Logger
	minLevel slog.Level
}

// NewSlogObserver creates an observer that logs to the given slog.Logger.
// Only events at or above minLevel will be logged.
func NewSlogObserver(logger *slog.Logger, minLevel slog.Level) *SlogObserver {
	return &SlogObserver{
		logger:   logger,
		minLevel: minLevel,
	}
}

func (o *SlogObserver) OnLookup(ctx context.Context, event *LookupEvent) {
	if o.minLevel <= slog.LevelDebug {
		o.logger.DebugContext(ctx, "cache lookup",
			slog.String("key", event.Key),
			slog.String("tier", event.Tier),
			slog.Bool("hit", event.Hit),
			slog.Duration("latency", event.Latency),
		)
	}
}

func (o *SlogObserver) OnWrite(ctx context.Context, event *WriteEvent) {
	if o.minLevel <= slog.LevelDebug {
		o.logger.DebugContext(ctx, "cache write",
			slog.String("key", event.Key),
			slog.Int("size", event.Size),
			slog.Any("tiers", event.Tiers),
			slog.Duration("duration", event.Duration),
		)
	}
}

func (o *SlogObserver) OnEviction(ctx context.Context, event *EvictionEvent) {
	if o.minLevel <= slog.LevelInfo {
		o.logger.InfoContext(ctx, "cache eviction",
			slog.String("tier", event.Tier),
			slog.String("reason", event.Reason),
			slog.Int("count", event.Count),
		)
	}
}

func (o *SlogObserver) OnTierFault(ctx context.Context, event *TierFaultEvent) {
	if o.minLevel <= slog.LevelWarn {
		o.logger.WarnContext(ctx, "cache tier fault",
			slog.String("tier", event.Tier),
			slog.String("op", event.Op),
			slog.String("error", event.Err.Error()),
		)
	}
}

func (o *SlogObserver) OnCleanup(ctx context.Context, event *CleanupEvent) {
	if o.minLevel <= slog.LevelInfo {
		o.logger.InfoContext(ctx, "cache cleanup sweep",
			slog.Int("memory_removed", event.MemoryRemoved),
			slog.Int("scalar_removed", event.ScalarRemoved),
			slog.Int64("bulk_removed", event.BulkRemoved),
			slog.Duration("duration", event.Duration),
		)
	}
}
