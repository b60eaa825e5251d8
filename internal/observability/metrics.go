package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the ingest path.
type Metrics struct {
	IngestRequests  *prometheus.CounterVec // labels: outcome={stored,invalid,unauthorized,error}
	IngestDuration  prometheus.Histogram
	AutoRegistered  prometheus.Counter
	AQIResolved     *prometheus.CounterVec // labels: source={device,external_api,pm25,iaq_estimate,none}
	EnrichmentCalls *prometheus.CounterVec // labels: outcome={success,error,skipped}
	PublishFailures prometheus.Counter
	ArchiveFailures prometheus.Counter
}

// NewMetrics creates and registers all ingest metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.IngestRequests,
		m.IngestDuration,
		m.AutoRegistered,
		m.AQIResolved,
		m.EnrichmentCalls,
		m.PublishFailures,
		m.ArchiveFailures,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		IngestRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeroguard",
			Name:      "ingest_requests_total",
			Help:      "Ingest requests by outcome.",
		}, []string{"outcome"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aeroguard",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete ingest pipeline run.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AutoRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aeroguard",
			Name:      "devices_auto_registered_total",
			Help:      "Devices auto-provisioned on first contact.",
		}),
		AQIResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeroguard",
			Name:      "aqi_resolved_total",
			Help:      "Stored measurements by AQI provenance.",
		}, []string{"source"}),
		EnrichmentCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aeroguard",
			Name:      "enrichment_lookups_total",
			Help:      "Third-party air quality lookups by outcome.",
		}, []string{"outcome"}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aeroguard",
			Name:      "event_publish_failures_total",
			Help:      "Live-update publishes that failed (never surfaced to callers).",
		}),
		ArchiveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aeroguard",
			Name:      "raw_archive_failures_total",
			Help:      "Raw payload archive writes that failed.",
		}),
	}
}
