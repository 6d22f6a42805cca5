// Package metrics instruments outbound object-storage requests with
// Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a registry and the client-side HTTP collectors registered in
// it.
type Metrics struct {
	reg      *prometheus.Registry
	inflight prometheus.Gauge
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates a Metrics instance with a fresh registry and registers collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "s3bucket",
		Subsystem: "client",
		Name:      "inflight_requests",
		Help:      "Current number of in-flight object storage requests.",
	})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "s3bucket",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Total number of object storage requests sent, partitioned by status code and method. Retries count separately.",
	}, []string{"code", "method"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "s3bucket",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Histogram of object storage request latencies.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"code", "method"})

	reg.MustRegister(inflight, requests, latency)

	return &Metrics{
		reg:      reg,
		inflight: inflight,
		requests: requests,
		latency:  latency,
	}
}

// RoundTripper wraps next so that every request it carries is counted and
// timed. A nil next means http.DefaultTransport.
func (m *Metrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(m.inflight,
		promhttp.InstrumentRoundTripperCounter(m.requests,
			promhttp.InstrumentRoundTripperDuration(m.latency, next)))
}

// WriteTextfile writes the current metric values to filename in the text
// exposition format, replacing the file atomically. It suits the node
// exporter textfile collector for short-lived commands.
func (m *Metrics) WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.reg)
}
