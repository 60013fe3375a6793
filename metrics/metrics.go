package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus collectors for the scraping pipeline.
type Metrics struct {
	ScrapesTotal      *prometheus.CounterVec
	ScrapeDuration    *prometheus.HistogramVec
	UnparsedFragments *prometheus.CounterVec
	CacheRequests     *prometheus.CounterVec
	StoreErrors       *prometheus.CounterVec
}

// New registers the pipeline collectors against reg. Tests pass their own
// registry so parallel test packages do not collide on the default one.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ScrapesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrapes_total",
			Help:      "Scrape attempts per source and outcome",
		}, []string{"source", "outcome"}),
		ScrapeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scrape_duration_seconds",
			Help:      "Time taken by one source scrape",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 90, 120},
		}, []string{"source"}),
		UnparsedFragments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_unparsed_total",
			Help:      "Listing fragments that matched no known shape",
		}, []string{"source"}),
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Freshness-aware store requests by outcome",
		}, []string{"outcome"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Persistence failures by operation",
		}, []string{"op"}),
	}
}
