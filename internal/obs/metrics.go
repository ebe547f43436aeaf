package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

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
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "control_login_attempts_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	provisioning = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "control_provisioning_total",
			Help: "First-access provisioning runs by result.",
		},
		[]string{"result"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "control_ready",
		Help: "1 while the readiness probe passes.",
	})
)

// Init registers all collectors in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, loginAttempts, provisioning, ready)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// LoginAttempt counts one authentication outcome (ok, invalid_login, user_locked, ...).
func LoginAttempt(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// Provisioned counts one first-access run.
func Provisioned(result string) {
	provisioning.WithLabelValues(result).Inc()
}

// SetReady mirrors the readiness probe result.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// Instrument records in-flight, count and latency per canonical route.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

var staticRoutes = map[string]bool{
	"/v1/applications/areas":    true,
	"/v1/applications/revenues": true,
	"/v1/applications/expenses": true,
}

// route templates; ":id" matches any single segment
var routeTemplates = [][]string{
	{"v1", "accounts", ":id"},
	{"v1", "accounts", ":id", "payment-methods"},
	{"v1", "applications", ":id"},
	{"v1", "payment-methods", ":id"},
	{"v1", "users", ":id", "password-reset"},
}

// CanonicalPath collapses identifiers so metric labels stay bounded.
func CanonicalPath(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	if staticRoutes[raw] {
		return raw
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	for _, tmpl := range routeTemplates {
		if len(tmpl) != len(parts) {
			continue
		}
		matched := true
		for i, seg := range tmpl {
			if seg != ":id" && seg != parts[i] {
				matched = false
				break
			}
		}
		if matched {
			return "/" + strings.Join(tmpl, "/")
		}
	}
	return raw
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
