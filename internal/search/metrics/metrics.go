package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for search and the geocoder client.
type Metrics struct {
	Searches        *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
	ResultsReturned prometheus.Histogram
	BreakerOpen     prometheus.Gauge
	BreakerRejected prometheus.Counter
}

// New creates a Metrics instance with all search metrics registered.
func New() *Metrics {
	return &Metrics{
		Searches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "waypoint_searches_total",
			Help: "Total number of searches by outcome",
		}, []string{"outcome"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waypoint_geocoder_request_duration_seconds",
			Help:    "Latency of geocoder requests by result category",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"category"}),
		ResultsReturned: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "waypoint_search_results",
			Help:    "Number of ranked results returned per search",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		}),
		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "waypoint_geocoder_circuit_open",
			Help: "1 when the geocoder circuit breaker is open",
		}),
		BreakerRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_geocoder_circuit_rejections_total",
			Help: "Requests rejected while the geocoder circuit was open",
		}),
	}
}

func (m *Metrics) IncrementSearches(outcome string) {
	m.Searches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpstream(category string, start time.Time) {
	m.UpstreamLatency.WithLabelValues(category).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveResults(n int) {
	m.ResultsReturned.Observe(float64(n))
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}

func (m *Metrics) IncrementBreakerRejected() {
	m.BreakerRejected.Inc()
}
