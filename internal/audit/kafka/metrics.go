package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit delivery to Kafka.
type Metrics struct {
	Produced        prometheus.Counter
	ProduceFailures prometheus.Counter
	ProduceDuration prometheus.Histogram
	Buffered        prometheus.Gauge
}

// NewMetrics creates and registers the audit delivery metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Produced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_audit_events_produced_total",
			Help: "Audit events acknowledged by Kafka",
		}),
		ProduceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "waypoint_audit_produce_failures_total",
			Help: "Failed produce calls for audit batches",
		}),
		ProduceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "waypoint_audit_produce_duration_seconds",
			Help:    "Latency of audit batch produce calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		Buffered: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "waypoint_audit_events_buffered",
			Help: "Audit events waiting for delivery",
		}),
	}
}

func (m *Metrics) AddProduced(n int) {
	m.Produced.Add(float64(n))
}

func (m *Metrics) IncProduceFailures() {
	m.ProduceFailures.Inc()
}

func (m *Metrics) ObserveProduceDuration(seconds float64) {
	m.ProduceDuration.Observe(seconds)
}

func (m *Metrics) SetBuffered(n int) {
	m.Buffered.Set(float64(n))
}
