package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	webhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amocrm_webhooks_total",
			Help: "Total number of amoCRM webhooks received",
		},
		[]string{"result"},
	)

	leadEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amocrm_lead_events_total",
			Help: "Total number of lead entries received per webhook bucket",
		},
		[]string{"bucket"},
	)

	budgetSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_syncs_total",
			Help: "Total number of sheet-to-CRM budget sync requests",
		},
		[]string{"result"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordWebhook(result string) {
	webhooksReceived.WithLabelValues(result).Inc()
}

func RecordLeadEvents(bucket string, count int) {
	if count > 0 {
		leadEventsReceived.WithLabelValues(bucket).Add(float64(count))
	}
}

func RecordBudgetSync(result string) {
	budgetSyncs.WithLabelValues(result).Inc()
}
