// Package metrics exposes nsortd counters in prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notesort"

// Metrics owns a private registry so several daemons (or tests) can coexist
// in one process. All methods are safe on a nil receiver.
type Metrics struct {
	registry      *prometheus.Registry
	notifications *prometheus.CounterVec
	moves         *prometheus.CounterVec
	errors        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	snapshots     prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reclassify",
			Name:      "notifications_total",
			Help:      "Change notifications handled, by outcome.",
		}, []string{"outcome"}),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reclassify",
			Name:      "moves_total",
			Help:      "Documents relocated, by reason.",
		}, []string{"reason"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reclassify",
			Name:      "errors_total",
			Help:      "Failed reclassifications and commands, by stage.",
		}, []string{"stage"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reclassify",
			Name:      "duration_seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"outcome"}),
		snapshots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "snapshots",
			Help:      "Documents currently held in the metadata index.",
		}),
	}
	m.registry.MustRegister(
		m.notifications,
		m.moves,
		m.errors,
		m.duration,
		m.snapshots,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveNotification counts one handled notification.
func (m *Metrics) ObserveNotification(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveMove(reason string) {
	if m == nil {
		return
	}
	m.moves.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveError(stage string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(stage).Inc()
}

func (m *Metrics) SetSnapshots(n int) {
	if m == nil {
		return
	}
	m.snapshots.Set(float64(n))
}
