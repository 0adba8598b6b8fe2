package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "zerodelay"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Advisory normalizer metrics.
	AlertRequests         *prometheus.CounterVec // labels: outcome={success,error}
	UpstreamFetchDuration prometheus.Histogram
	UpstreamErrors        prometheus.Counter
	SummaryCache          *prometheus.CounterVec // labels: result={hit,miss,error}
	ActiveAdvisories      *prometheus.GaugeVec   // labels: bucket={special,warning,advisory}

	// Feed watcher metrics.
	WatcherRunning     prometheus.Gauge
	SummariesPublished prometheus.Counter

	ShelterQueries  *prometheus.CounterVec // labels: kind={list,bounds,nearby,search,fit}
	SettingsUpdates prometheus.Counter

	HTTPRequestDuration *prometheus.HistogramVec // labels: route, status
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.AlertRequests,
		m.UpstreamFetchDuration,
		m.UpstreamErrors,
		m.SummaryCache,
		m.ActiveAdvisories,
		m.WatcherRunning,
		m.SummariesPublished,
		m.ShelterQueries,
		m.SettingsUpdates,
		m.HTTPRequestDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AlertRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_requests_total",
			Help:      "Advisory summary requests by outcome.",
		}, []string{"outcome"}),
		UpstreamFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Duration of JMA warning feed requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		UpstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Failed JMA warning feed requests, including undecodable bodies.",
		}),
		SummaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_total",
			Help:      "Summary cache lookups by result.",
		}, []string{"result"}),
		ActiveAdvisories: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_advisories",
			Help:      "Entries per severity bucket in the most recent watched summary.",
		}, []string{"bucket"}),
		WatcherRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watcher_running",
			Help:      "1 when the feed watcher is active, 0 when shut down.",
		}),
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      "Changed summaries written to the Kafka topic.",
		}),
		ShelterQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shelter_queries_total",
			Help:      "Shelter catalog queries by kind.",
		}, []string{"kind"}),
		SettingsUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_updates_total",
			Help:      "Accepted settings updates.",
		}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route pattern and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
