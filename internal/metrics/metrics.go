// Package metrics exposes the forwarding loop's progress as Prometheus
// collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "airquality_gateway"

type Metrics struct {
	registry *prometheus.Registry

	cycles            prometheus.Counter
	failures          *prometheus.CounterVec
	published         prometheus.Counter
	consecutiveErrors prometheus.Gauge
	backoff           prometheus.Gauge
	halted            prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Forwarding cycles started.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_failures_total",
			Help:      "Failed forwarding cycles by failure kind.",
		}, []string{"kind"}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_total",
			Help:      "Messages handed to the broker.",
		}),
		consecutiveErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_errors",
			Help:      "Consecutive failed cycles since the last success.",
		}),
		backoff: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backoff_seconds",
			Help:      "Current pause after a failed cycle.",
		}),
		halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "halted",
			Help:      "1 once the error budget is exhausted and forwarding has stopped.",
		}),
	}

	m.registry.MustRegister(
		m.cycles,
		m.failures,
		m.published,
		m.consecutiveErrors,
		m.backoff,
		m.halted,
	)
	return m
}

func (m *Metrics) CycleStarted() {
	m.cycles.Inc()
}

func (m *Metrics) CycleFailed(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Published() {
	m.published.Inc()
}

func (m *Metrics) ErrorState(count int, pause time.Duration) {
	m.consecutiveErrors.Set(float64(count))
	m.backoff.Set(pause.Seconds())
}

func (m *Metrics) Halted() {
	m.halted.Set(1)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
