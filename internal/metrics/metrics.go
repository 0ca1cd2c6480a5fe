// Package metrics exposes Prometheus instruments for wallet operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recovery_wallet"

// Recorder counts and times wallet operations. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	forwarded  prometheus.Counter
}

// New registers the wallet instruments on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Wallet operations by name and outcome",
			},
			[]string{"operation", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Wallet operation latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		forwarded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forwarded_value_total",
				Help:      "Native value moved out of wallets by forwarded calls",
			},
		),
	}
	r.registry.MustRegister(r.operations, r.latency, r.forwarded)
	return r
}

// Observe records one finished operation. result is "ok" or an error kind.
func (r *Recorder) Observe(operation, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, result).Inc()
	r.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// AddForwardedValue accumulates value sent by successful forwarded calls.
func (r *Recorder) AddForwardedValue(value int64) {
	if r == nil || value <= 0 {
		return
	}
	r.forwarded.Add(float64(value))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
