package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/support-agent/internal/core/domain"
)

const namespace = "support"

// HTTPServerMetrics covers the API transport and the query pipeline behind it.
type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal        *prometheus.CounterVec
	safetyBlockedTotal  *prometheus.CounterVec
	validationTotal     *prometheus.CounterVec
	outputFilteredTotal *prometheus.CounterVec
	retrievedItems      *prometheus.HistogramVec
	noEvidenceTotal     *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	llmTokensTotal      *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "queries_total",
			Help:      "Total processed queries by intent.",
		},
		[]string{"service", "intent"},
	)
	safetyBlockedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "safety_blocked_total",
			Help:      "Total queries rejected by the input safety check.",
		},
		[]string{"service"},
	)
	validationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "validation_total",
			Help:      "Total validated answers by outcome.",
		},
		[]string{"service", "outcome"},
	)
	outputFilteredTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "output_filtered_total",
			Help:      "Total answers altered by the output filter.",
		},
		[]string{"service"},
	)
	retrievedItems := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieved_items",
			Help:      "Distribution of retrieved FAQ items per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service"},
	)
	noEvidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total non-chitchat queries answered without retrieved evidence.",
		},
		[]string{"service"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end query pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "intent"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the model provider, by direction.",
		},
		[]string{"service", "direction", "model"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		safetyBlockedTotal,
		validationTotal,
		outputFilteredTotal,
		retrievedItems,
		noEvidenceTotal,
		queryDuration,
		llmTokensTotal,
	)

	return &HTTPServerMetrics{
		service:             service,
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		queriesTotal:        queriesTotal,
		safetyBlockedTotal:  safetyBlockedTotal,
		validationTotal:     validationTotal,
		outputFilteredTotal: outputFilteredTotal,
		retrievedItems:      retrievedItems,
		noEvidenceTotal:     noEvidenceTotal,
		queryDuration:       queryDuration,
		llmTokensTotal:      llmTokensTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterSessionCost exposes the running session cost reported by costFn.
func (m *HTTPServerMetrics) RegisterSessionCost(costFn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "llm",
			Name:        "session_cost",
			Help:        "Estimated LLM cost of the current session.",
			ConstLabels: prometheus.Labels{"service": m.service},
		},
		costFn,
	))
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/faqs/"):
		return "/v1/faqs/{faq_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordQuery(result domain.QueryResult, duration time.Duration) {
	if result.Metadata.SafetyBlocked {
		m.safetyBlockedTotal.WithLabelValues(m.service).Inc()
		return
	}
	intent := string(result.Intent)
	if intent == "" {
		intent = "unknown"
	}
	m.queriesTotal.WithLabelValues(m.service, intent).Inc()
	m.queryDuration.WithLabelValues(m.service, intent).Observe(duration.Seconds())

	if result.Intent != domain.IntentChitchat {
		m.retrievedItems.WithLabelValues(m.service).Observe(float64(result.Metadata.NumRetrieved))
		if result.Metadata.NumRetrieved == 0 {
			m.noEvidenceTotal.WithLabelValues(m.service).Inc()
		} else {
			outcome := "passed"
			if !result.ValidationPassed {
				outcome = "failed"
			}
			m.validationTotal.WithLabelValues(m.service, outcome).Inc()
		}
	}
	if result.Metadata.OutputFiltered {
		m.outputFilteredTotal.WithLabelValues(m.service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordTokenUsage(model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "out", model).Add(float64(completionTokens))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
