// Package metrics exposes pipeline counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

type Metrics struct {
	documents *prometheus.CounterVec
	duration  prometheus.Histogram
	registry  *prometheus.Registry
}

// New registers the pipeline metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		documents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "invoices_documents_processed_total",
				Help: "Documents run through the pipeline, by outcome",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "invoices_document_duration_seconds",
				Help:    "Wall time from decode start to outcome",
				Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 15, 60, 180},
			},
		),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.documents, m.duration)
	return m
}

// RecordOutcome implements pipeline.OutcomeRecorder.
func (m *Metrics) RecordOutcome(status constants.Outcome, elapsed time.Duration) {
	m.documents.WithLabelValues(string(status)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// TrackQueue exports depth() as the invoices_queue_depth gauge.
func (m *Metrics) TrackQueue(depth func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "invoices_queue_depth",
			Help: "Documents waiting for a worker",
		},
		func() float64 { return float64(depth()) },
	))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
