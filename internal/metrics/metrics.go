// Package metrics records ledger activity in a private Prometheus registry.
// A CLI process is short-lived, so metrics are flushed to a node-exporter
// textfile rather than served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements ledger.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	admissions     *prometheus.CounterVec
	encodeDuration prometheus.Histogram
	billsStored    prometheus.Gauge
}

// New creates and registers the ledger collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billbook_admissions_total",
				Help: "Bill admission attempts by result.",
			},
			[]string{"result"},
		),
		encodeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billbook_encode_duration_seconds",
				Help:    "Time spent rendering bill QR codes.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
		billsStored: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "billbook_bills_stored",
				Help: "Number of bills in the ledger.",
			},
		),
	}
	m.registry.MustRegister(m.admissions, m.encodeDuration, m.billsStored)
	return m
}

// Registry exposes the underlying registry, which holds only the billbook
// collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAdmission counts one admission attempt.
func (m *Metrics) ObserveAdmission(result string) {
	m.admissions.WithLabelValues(result).Inc()
}

// ObserveEncode records the duration of one QR encode.
func (m *Metrics) ObserveEncode(d time.Duration) {
	m.encodeDuration.Observe(d.Seconds())
}

// SetStored sets the current ledger size.
func (m *Metrics) SetStored(n int) {
	m.billsStored.Set(float64(n))
}

// WriteTextfile writes the registry in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry())
}
