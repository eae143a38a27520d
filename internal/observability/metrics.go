package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	askTotal    *prometheus.CounterVec
	askDuration prometheus.Histogram

	modelCallTotal    *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec

	activeSessions      prometheus.Gauge
	sessionSaveDuration prometheus.Histogram

	authTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			askTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "ask_requests_total",
					Help: "Total ask requests by status.",
				},
				[]string{"status"},
			),
			askDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "ask_request_duration_seconds",
					Help:    "Ask request duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			modelCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "model_call_total",
					Help: "Total model calls by provider and status.",
				},
				[]string{"provider", "status"},
			),
			modelCallDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "model_call_duration_seconds",
					Help:    "Model call duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "active_sessions",
					Help: "Current active session count.",
				},
			),
			sessionSaveDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "session_save_duration_seconds",
					Help:    "Session snapshot save duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			authTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "auth_operations_total",
					Help: "Total auth operations by operation and status.",
				},
				[]string{"operation", "status"},
			),
		}

		prometheus.MustRegister(
			m.askTotal,
			m.askDuration,
			m.modelCallTotal,
			m.modelCallDuration,
			m.activeSessions,
			m.sessionSaveDuration,
			m.authTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordAsk(duration time.Duration, status string) {
	m := getMetrics()
	m.askTotal.WithLabelValues(status).Inc()
	m.askDuration.Observe(duration.Seconds())
}

func RecordModelCall(provider string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.modelCallTotal.WithLabelValues(provider, status).Inc()
	m.modelCallDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func SetActiveSessions(count int) {
	m := getMetrics()
	m.activeSessions.Set(float64(count))
}

func RecordSessionSave(duration time.Duration) {
	m := getMetrics()
	m.sessionSaveDuration.Observe(duration.Seconds())
}

func RecordAuthOperation(operation string, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.authTotal.WithLabelValues(operation, status).Inc()
}
