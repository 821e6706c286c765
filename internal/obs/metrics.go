package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets, // [0.005..10]
		},
		[]string{"method", "path", "status"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready.",
	})
)

// Доменные метрики двухуровневого согласования
var (
	passRequestsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pass_requests_created_total",
			Help: "Pass requests created, by initial routing target.",
		},
		[]string{"routed_to"},
	)

	passStageDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pass_stage_decisions_total",
			Help: "Bulk and per-person stage decisions.",
		},
		[]string{"stage", "decision"},
	)

	passFinalizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pass_finalizations_total",
			Help: "Request status changes produced by the finalization aggregator.",
		},
		[]string{"status"},
	)
)

// Регистрация метрик в default-регистре.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration, ready,
		passRequestsCreated, passStageDecisions, passFinalizations,
	)
}

// SetReady toggles the readiness gauge.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// CountRequestCreated records a created request routed to the given stage.
func CountRequestCreated(routedTo string) {
	passRequestsCreated.WithLabelValues(routedTo).Inc()
}

// CountStageDecision records an approve/decline at a stage.
func CountStageDecision(stage, decision string) {
	passStageDecisions.WithLabelValues(stage, decision).Inc()
}

// CountFinalization records a request status change made by the aggregator.
func CountFinalization(status string) {
	passFinalizations.WithLabelValues(status).Inc()
}

// Хэндлер Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CanonicalPath collapses resource identifiers so metric label cardinality
// stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 3 || parts[0] != "v1" {
		return p
	}
	switch parts[1] {
	case "requests":
		if len(parts) == 3 {
			return "/v1/requests/:id"
		}
		if len(parts) == 4 {
			switch parts[3] {
			case "approve", "decline", "issue", "close":
				return "/v1/requests/:id/" + parts[3]
			}
		}
	case "persons":
		if len(parts) == 4 && (parts[3] == "approve" || parts[3] == "reject") {
			return "/v1/persons/:id/" + parts[3]
		}
	case "notifications":
		if len(parts) == 4 && parts[3] == "read" {
			return "/v1/notifications/:id/read"
		}
	}
	return p
}

// Обёртка для измерения RPS/latency/в полёте.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter — локальная копия, чтобы знать код ответа.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
