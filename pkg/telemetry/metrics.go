package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for apply runs. A nil or disabled
// instance is a safe no-op.
type Metrics struct {
	enabled bool

	appliesTotal  *prometheus.CounterVec
	applyDuration *prometheus.HistogramVec
	driftEvents   prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector. When disabled, all observations
// are dropped.
func NewMetrics(enabled bool) *Metrics {
	if !enabled {
		return &Metrics{}
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		enabled:  true,
		registry: registry,
		appliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kargtune",
				Name:      "applies_total",
				Help:      "Total number of profile apply runs",
			},
			[]string{"profile", "status"},
		),
		applyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kargtune",
				Name:      "apply_duration_seconds",
				Help:      "Duration of profile apply runs in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"status"},
		),
		driftEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "kargtune",
				Name:      "drift_events_total",
				Help:      "Total number of out-of-band changes observed by the drift watcher",
			},
		),
	}

	registry.MustRegister(m.appliesTotal, m.applyDuration, m.driftEvents)
	return m
}

// ObserveApply records one apply run outcome.
func (m *Metrics) ObserveApply(profile, status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.appliesTotal.WithLabelValues(profile, status).Inc()
	m.applyDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveDrift records one out-of-band change event.
func (m *Metrics) ObserveDrift() {
	if !m.enabled {
		return
	}
	m.driftEvents.Inc()
}

// Handler returns an HTTP handler exposing the registry, nil when disabled.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
