package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the event archiver.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	archiveTotal    *prometheus.CounterVec
	archiveDuration *prometheus.HistogramVec
	archiveInFlight prometheus.Gauge
	eventLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	archiveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_archive_total",
			Help:      "Total archived events by type and status.",
		},
		[]string{"service", "event_type", "status"},
	)
	archiveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_archive_duration_seconds",
			Help:      "Event archive write duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	archiveInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_archive_in_flight",
			Help:      "Number of events being archived.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "event_lag_seconds",
			Help:      "Delay between event creation and archiving start.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	registry.MustRegister(archiveTotal, archiveDuration, archiveInFlight, eventLag)

	return &WorkerMetrics{
		service:         service,
		registry:        registry,
		archiveTotal:    archiveTotal,
		archiveDuration: archiveDuration,
		archiveInFlight: archiveInFlight,
		eventLag:        eventLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.archiveInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(eventType string, duration time.Duration, err error) {
	m.archiveInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	if eventType == "" {
		eventType = "unknown"
	}

	m.archiveTotal.WithLabelValues(m.service, eventType, status).Inc()
	m.archiveDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveEventLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(m.service).Observe(lag.Seconds())
}
