package tiercache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// OTelObserver implements Observer using OpenTelemetry for traces and metrics.
// This provides automatic integration with OTLP exporters (Jaeger, Tempo,
// Datadog, etc.).
//
// Example:
//
//	tracer := otel.Tracer("tiercache")
//	meter := otel.Meter("tiercache")
//	observer, _ := tiercache.NewOTelObserver(tracer, meter)
//	cache := tiercache.New(tiercache.WithObserver(observer))
type OTelObserver struct {
	tracer trace.Tracer

	// Metrics
	hits            metric.Int64Counter
	misses          metric.Int64Counter
	lookupLatency   metric.Float64Histogram
	writes          metric.Int64Counter
	evictions       metric.Int64Counter
	tierFaults      metric.Int64Counter
	cleanupDuration metric.Float64Histogram
}

// NewOTelObserver creates an OpenTelemetry observer.
func NewOTelObserver(tracer trace.Tracer, meter metric.Meter) (*OTelObserver, error) {
	hits, err := meter.Int64Counter(
		"tiercache.hits",
		metric.WithDescription("Number of cache hits by serving tier"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create hits counter: %w", err)
	}

	misses, err := meter.Int64Counter(
		"tiercache.misses",
		metric.WithDescription("Number of full cache misses"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create misses counter: %w", err)
	}

	lookupLatency, err := meter.Float64Histogram(
		"tiercache.lookup_latency",
		metric.WithDescription("Latency of cache lookups in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup latency histogram: %w", err)
	}

	writes, err := meter.Int64Counter(
		"tiercache.writes",
		metric.WithDescription("Number of tier writes in set fan-outs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create writes counter: %w", err)
	}

	evictions, err := meter.Int64Counter(
		"tiercache.evictions",
		metric.WithDescription("Number of evicted entries"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create evictions counter: %w", err)
	}

	tierFaults, err := meter.Int64Counter(
		"tiercache.tier_faults",
		metric.WithDescription("Number of absorbed backend faults"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tier faults counter: %w", err)
	}

	cleanupDuration, err := meter.Float64Histogram(
		"tiercache.cleanup_duration",
		metric.WithDescription("Duration of cleanup sweeps in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cleanup duration histogram: %w", err)
	}

	return &OTelObserver{
		tracer:          tracer,
		hits:            hits,
		misses:          misses,
		lookupLatency:   lookupLatency,
		writes:          writes,
		evictions:       evictions,
		tierFaults:      tierFaults,
		cleanupDuration: cleanupDuration,
	}, nil
}

func (o *OTelObserver) OnLookup(ctx context.Context, event *LookupEvent) {
	if event.Hit {
		o.hits.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tier", event.Tier),
		))
	} else {
		o.misses.Add(ctx, 1)
	}
	o.lookupLatency.Record(ctx, event.Latency.Seconds())

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("cache_lookup", trace.WithAttributes(
			attribute.Bool("hit", event.Hit),
			attribute.String("tier", event.Tier),
		))
	}
}

func (o *OTelObserver) OnWrite(ctx context.Context, event *WriteEvent) {
	for _, tier := range event.Tiers {
		o.writes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tier", tier),
		))
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("cache_write", trace.WithAttributes(
			attribute.Int("size", event.Size),
			attribute.StringSlice("tiers", event.Tiers),
		))
	}
}

func (o *OTelObserver) OnEviction(ctx context.Context, event *EvictionEvent) {
	o.evictions.Add(ctx, int64(event.Count), metric.WithAttributes(
		attribute.String("tier", event.Tier),
		attribute.String("reason", event.Reason),
	))
}

func (o *OTelObserver) OnTierFault(ctx context.Context, event *TierFaultEvent) {
	o.tierFaults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", event.Tier),
		attribute.String("op", event.Op),
	))

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("cache_tier_fault", trace.WithAttributes(
			attribute.String("tier", event.Tier),
			attribute.String("op", event.Op),
			attribute.String("error", event.Err.Error()),
		))
	}
}

func (o *OTelObserver) OnCleanup(ctx context.Context, event *CleanupEvent) {
	o.cleanupDuration.Record(ctx, event.Duration.Seconds())
}
