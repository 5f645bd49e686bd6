package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	RequestsCollectorName = "http_requests_total"
	LatencyCollectorName  = "http_request_duration_milliseconds"
)

// Middleware records request counts and latency partitioned by status code, method and route pattern.
type Middleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMiddleware registers the HTTP collectors on reg.
func NewMiddleware(reg prometheus.Registerer, service string) *Middleware {
	m := &Middleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        RequestsCollectorName,
			Help:        "Number of HTTP requests partitioned by status code, method and HTTP path.",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"code", "method", "path"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        LatencyCollectorName,
			Help:        "Time spent on the request partitioned by status code, method and HTTP path.",
			ConstLabels: prometheus.Labels{"service": service},
			Buckets:     []float64{5, 25, 100, 300, 1000, 5000},
		}, []string{"code", "method", "path"}),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// r.Pattern is filled in by the ServeMux that routed the request.
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		code := strconv.Itoa(rec.status)
		m.requests.WithLabelValues(code, r.Method, path).Inc()
		m.latency.WithLabelValues(code, r.Method, path).Observe(float64(time.Since(start).Milliseconds()))
	})
}
