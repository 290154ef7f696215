// Package metrics exposes Prometheus counters for the search pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "productlens"

// Metrics holds the search pipeline collectors. Each instance owns its own
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	SearchRequests         *prometheus.CounterVec
	SearchFailures         *prometheus.CounterVec
	AggregatorFetchLatency prometheus.Histogram
}

// New creates and registers all collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SearchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search requests by result source (cache, new, disabled, error)",
		}, []string{"source"}),
		SearchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_failures_total",
			Help:      "Failed search requests by failure kind",
		}, []string{"kind"}),
		AggregatorFetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregator_fetch_duration_seconds",
			Help:      "Latency of live aggregator fetches",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

// RecordSearch counts one finished search by source
func (m *Metrics) RecordSearch(source string) {
	if m == nil {
		return
	}
	m.SearchRequests.WithLabelValues(source).Inc()
}

// RecordFailure counts one failed search by kind
func (m *Metrics) RecordFailure(kind string) {
	if m == nil {
		return
	}
	m.SearchFailures.WithLabelValues(kind).Inc()
}

// ObserveFetch records how long an aggregator call took
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.AggregatorFetchLatency.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
