package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lexmachina_agent"

type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration *prometheus.HistogramVec

	DescriptionFetchesTotal  *prometheus.CounterVec
	DescriptionFetchDuration *prometheus.HistogramVec
	EnrichmentOutcomesTotal  *prometheus.CounterVec
	EnrichmentFanOutSize     prometheus.Histogram
	EnrichmentFanOutDuration prometheus.Histogram
	TokenExchangesTotal      *prometheus.CounterVec
	TokenExchangeDuration    prometheus.Histogram
	RateLimitHitsTotal       *prometheus.CounterVec
	TasksTotal               *prometheus.CounterVec
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of agent turns processed",
			},
			[]string{"type", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Agent turn duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"type"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of agent turns currently being processed",
			},
		),

		SearchRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Total number of suggestion search requests",
			},
			[]string{"status"},
		),
		SearchRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_request_duration_seconds",
				Help:      "Suggestion search duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{},
		),

		DescriptionFetchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "description_fetches_total",
				Help:      "Total number of description fetches",
			},
			[]string{"status"},
		),
		DescriptionFetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "description_fetch_duration_seconds",
				Help:      "Description fetch duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 15},
			},
			[]string{},
		),
		EnrichmentOutcomesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enrichment_outcomes_total",
				Help:      "Per-suggestion enrichment outcomes",
			},
			[]string{"result", "reason"},
		),
		EnrichmentFanOutSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "enrichment_fanout_size",
				Help:      "Number of suggestions enriched per turn",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
		),
		EnrichmentFanOutDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "enrichment_fanout_duration_seconds",
				Help:      "Wall time of one enrichment fan-out",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),

		TokenExchangesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_exchanges_total",
				Help:      "OAuth2 client credentials exchanges",
			},
			[]string{"status"},
		),
		TokenExchangeDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "token_exchange_duration_seconds",
				Help:      "OAuth2 token exchange duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10},
			},
		),

		RateLimitHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of inbound requests rejected by the rate limiter",
			},
			[]string{"route"},
		),

		TasksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_total",
				Help:      "A2A tasks by final state",
			},
			[]string{"state"},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor serves the collectors of a specific registry.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(reqType, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(reqType, status).Inc()
	m.RequestDuration.WithLabelValues(reqType).Observe(duration.Seconds())
}

func (m *Metrics) RecordSearchRequest(status string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(status).Inc()
	m.SearchRequestDuration.WithLabelValues().Observe(duration.Seconds())
}

func (m *Metrics) RecordDescriptionFetch(status string, duration time.Duration) {
	m.DescriptionFetchesTotal.WithLabelValues(status).Inc()
	m.DescriptionFetchDuration.WithLabelValues().Observe(duration.Seconds())
}

func (m *Metrics) RecordEnrichment(result, reason string) {
	m.EnrichmentOutcomesTotal.WithLabelValues(result, reason).Inc()
}

func (m *Metrics) RecordFanOut(size int, duration time.Duration) {
	m.EnrichmentFanOutSize.Observe(float64(size))
	m.EnrichmentFanOutDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordTokenExchange(status string, duration time.Duration) {
	m.TokenExchangesTotal.WithLabelValues(status).Inc()
	m.TokenExchangeDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordRateLimitHit(route string) {
	m.RateLimitHitsTotal.WithLabelValues(route).Inc()
}

func (m *Metrics) RecordTask(state string) {
	m.TasksTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
