package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stubd"

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the server's collectors.
type Metrics struct {
	registry *prometheus.Registry

	Searches       *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec
	Degradations   *prometheus.CounterVec
	Recordings     *prometheus.CounterVec
	Reloads        *prometheus.CounterVec
	Stubs          prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total stub searches by outcome.",
			},
			[]string{"outcome"},
		),
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Duration of stub searches in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		Degradations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degradations_total",
				Help:      "Comparisons that fell back to a weaker strategy.",
			},
			[]string{"reason"},
		),
		Recordings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recordings_total",
				Help:      "Recording fetches by result.",
			},
			[]string{"result"},
		),
		Reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_total",
				Help:      "Configuration reloads by result.",
			},
			[]string{"result"},
		),
		Stubs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stubs",
				Help:      "Number of stubs currently loaded.",
			},
		),
	}

	m.registry.MustRegister(
		m.Searches,
		m.SearchDuration,
		m.Degradations,
		m.Recordings,
		m.Reloads,
		m.Stubs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SearchCompleted records one search.
func (m *Metrics) SearchCompleted(outcome string, elapsed time.Duration) {
	m.Searches.WithLabelValues(outcome).Inc()
	m.SearchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Degraded records a comparison fallback.
func (m *Metrics) Degraded(reason string) {
	m.Degradations.WithLabelValues(reason).Inc()
}

// Recorded records a recording fetch.
func (m *Metrics) Recorded(err error) {
	m.Recordings.WithLabelValues(result(err)).Inc()
}

// Reloaded records a configuration reload and the resulting stub count.
func (m *Metrics) Reloaded(stubs int, err error) {
	m.Reloads.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.Stubs.Set(float64(stubs))
	}
}

// SetStubs sets the loaded stub gauge.
func (m *Metrics) SetStubs(n int) {
	m.Stubs.Set(float64(n))
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
