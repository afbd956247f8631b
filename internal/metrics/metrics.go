package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ns = "launcherstats"

	LabelRoute  = "route"
	LabelStatus = "status"
	LabelResult = "result"

	GeoHit     = "hit"
	GeoMiss    = "miss"
	GeoTimeout = "timeout"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestSeconds  *prometheus.HistogramVec
	EventsIngested  prometheus.Counter
	SessionsCreated prometheus.Counter
	GeoLookups      *prometheus.CounterVec
	StatsSeconds    prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total", Namespace: ns,
			Help: "HTTP requests handled, by route and status code.",
		}, []string{LabelRoute, LabelStatus}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds", Namespace: ns,
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			Help:    "Latency of HTTP requests, by route.",
		}, []string{LabelRoute}),
		EventsIngested: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "events_ingested_total", Namespace: ns,
			Help: "Telemetry events written to the event log.",
		}),
		SessionsCreated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sessions_created_total", Namespace: ns,
			Help: "Sessions opened by heartbeats without a session id.",
		}),
		GeoLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geo_lookups_total", Namespace: ns,
			Help: "Country lookups, by result (hit, miss, timeout).",
		}, []string{LabelResult}),
		StatsSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "stats_compute_seconds", Namespace: ns,
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			Help:    "Time spent computing the daily active user summary.",
		}),
	}
}

// NewNop returns collectors bound to a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
