package tiercache

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver implements Observer using Prometheus metrics.
// This is useful if you're already using Prometheus for monitoring.
//
// Example:
//
//	observer := tiercache.NewPrometheusObserver("my_service", prometheus.DefaultRegisterer)
//	cache := tiercache.New(tiercache.WithObserver(observer))
type PrometheusObserver struct {
	hits            *prometheus.CounterVec
	misses          prometheus.Counter
	lookupLatency   prometheus.Histogram
	writes          *prometheus.CounterVec
	writeSize       prometheus.Histogram
	evictions       *prometheus.CounterVec
	tierFaults      *prometheus.CounterVec
	cleanupDuration prometheus.Histogram
	cleanupRemoved  *prometheus.CounterVec
}

// NewPrometheusObserver creates a Prometheus observer with the given namespace.
// All metrics will be prefixed with "{namespace}_tiercache_".
func NewPrometheusObserver(namespace string, registerer prometheus.Registerer) *PrometheusObserver {
	if namespace == "" {
		namespace = "tiercache"
	}

	hits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiercache",
			Name:      "hits_total",
			Help:      "Total number of cache hits by serving tier",
		},
		[]string{"tier"},
	)

	misses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiercache",
			Name:      "misses_total",
			Help:      "Total number of full cache misses",
		},
	)

	lookupLatency := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tiercache",
			Name:      "lookup_latency_seconds",
			Help:      "Latency of cache lookups in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	writes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiercache",
			Name:      "writes_total",
			Help:      "Total number of tier writes in set fan-outs",
		},
		[]string{"tier"},
	)

	writeSize := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tiercache",
			Name:      "write_size_bytes",
			Help:      "Serialized envelope size of written entries",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		},
	)

	evictions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiercache",
			Name:      "evictions_total",
			Help:      "Total number of evicted entries by tier and reason",
		},
		[]string{"tier", "reason"},
	)

	tierFaults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiercache",
			Name:      "tier_faults_total",
			Help:      "Total number of absorbed backend faults",
		},
		[]string{"tier", "op"},
	)

	cleanupDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tiercache",
			Name:      "cleanup_duration_seconds",
			Help:      "Duration of cleanup sweeps in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	cleanupRemoved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiercache",
			Name:      "cleanup_removed_total",
			Help:      "Total number of entries removed by cleanup sweeps",
		},
		[]string{"tier"},
	)

	// Register all metrics
	registerer.MustRegister(
		hits,
		misses,
		lookupLatency,
		writes,
		writeSize,
		evictions,
		tierFaults,
		cleanupDuration,
		cleanupRemoved,
	)

	return &PrometheusObserver{
		hits:            hits,
		misses:          misses,
		lookupLatency:   lookupLatency,
		writes:          writes,
		writeSize:       writeSize,
		evictions:       evictions,
		tierFaults:      tierFaults,
		cleanupDuration: cleanupDuration,
		cleanupRemoved:  cleanupRemoved,
	}
}

func (o *PrometheusObserver) OnLookup(ctx context.Context, event *LookupEvent) {
	if event.Hit {
		o.hits.WithLabelValues(event.Tier).Inc()
	} else {
		o.misses.Inc()
	}
	o.lookupLatency.Observe(event.Latency.Seconds())
}

func (o *PrometheusObserver) OnWrite(ctx context.Context, event *WriteEvent) {
	for _, tier := range event.Tiers {
		o.writes.WithLabelValues(tier).Inc()
	}
	if event.Size > 0 {
		o.writeSize.Observe(float64(event.Size))
	}
}

func (o *PrometheusObserver) OnEviction(ctx context.Context, event *EvictionEvent) {
	o.evictions.WithLabelValues(event.Tier, event.Reason).Add(float64(event.Count))
}

func (o *PrometheusObserver) OnTierFault(ctx context.Context, event *TierFaultEvent) {
	o.tierFaults.WithLabelValues(event.Tier, event.Op).Inc()
}

func (o *PrometheusObserver) OnCleanup(ctx context.Context, event *CleanupEvent) {
	o.cleanupDuration.Observe(event.Duration.Seconds())
	o.cleanupRemoved.WithLabelValues(TierMemory).Add(float64(event.MemoryRemoved))
	o.cleanupRemoved.WithLabelValues(TierScalar).Add(float64(event.ScalarRemoved))
	o.cleanupRemoved.WithLabelValues(TierBulk).Add(float64(event.BulkRemoved))
}
