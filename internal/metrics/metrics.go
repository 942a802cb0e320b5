package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider calls, one observation per HTTP attempt
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_provider_requests_total",
			Help: "Total number of metadata provider requests by outcome",
		},
		[]string{"provider", "outcome"}, // outcome: ok, network, rate_limited, not_found, http, malformed, circuit_open
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelf_provider_request_duration_seconds",
			Help:    "Duration of metadata provider requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ProviderCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelf_provider_cache_hits_total",
			Help: "Primary metadata lookups answered from the in-process cache",
		},
	)

	// Import pipeline
	ImportGroups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_import_groups_total",
			Help: "Series groups processed by the importer by result",
		},
		[]string{"result"}, // imported, updated, error
	)

	ImportCooldowns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelf_import_cooldowns_total",
			Help: "Cool-down pauses inserted between import batches",
		},
	)

	ImportJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shelf_import_jobs_active",
			Help: "Import jobs currently running",
		},
	)
)

// RecordProviderRequest records one provider attempt.
func RecordProviderRequest(provider, outcome string, duration time.Duration) {
	ProviderRequests.WithLabelValues(provider, outcome).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordGroup(result string) {
	ImportGroups.WithLabelValues(result).Inc()
}

func RecordCooldown() {
	ImportCooldowns.Inc()
}

// TrackJob adjusts the active job gauge.
func TrackJob(start bool) {
	if start {
		ImportJobsActive.Inc()
	} else {
		ImportJobsActive.Dec()
	}
}
