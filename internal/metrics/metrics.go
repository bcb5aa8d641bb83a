// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rajh"

// routes are the label values allowed for the path label; anything else is
// counted as "other".
var routes = map[string]bool{
	"/teams":    true,
	"/contacts": true,
	"/session":  true,
	"/upload":   true,
	"/health":   true,
}

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "code"})

	httpRequestBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_size_bytes",
		Help:    "HTTP request body size",
		Buckets: prometheus.ExponentialBuckets(128, 4, 9), // 128B .. 8MiB
	}, []string{"method", "route"})

	httpResponseBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "response_size_bytes",
		Help:    "HTTP response body size",
		Buckets: prometheus.ExponentialBuckets(64, 4, 8),
	}, []string{"method", "route"})

	dbOpenConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "db", Name: "connections",
		Help: "Store connections by state",
	}, []string{"state"}) // in_use, idle

	dbQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "db", Name: "queries_total",
		Help: "Store transactions by operation and outcome",
	}, []string{"operation", "status"})

	dbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "db", Name: "query_duration_seconds",
		Help:    "Store transaction latency",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation"})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "session", Name: "logins_total",
		Help: "Admin login attempts",
	}, []string{"status"})

	sessionChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "session", Name: "checks_total",
		Help: "Session verifications",
	}, []string{"result"})

	contactSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "contact", Name: "submissions_total",
		Help: "Stored contact form submissions",
	})

	contactStatusUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "contact", Name: "status_updates_total",
		Help: "Contact submission status changes by target status",
	}, []string{"status"})

	contactNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "contact", Name: "notifications_total",
		Help: "Contact notification e-mails",
	}, []string{"status"}) // sent, skipped, failed

	teamMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "team", Name: "mutations_total",
		Help: "Team roster changes",
	}, []string{"operation"})

	imageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "upload", Name: "images_total",
		Help: "Images relayed to the image host",
	}, []string{"status"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ratelimit", Name: "rejections_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"endpoint"})
)

// PrometheusMiddleware records request count, latency and sizes. Scrapes of
// /metrics are not recorded.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		route := routeLabel(r.URL.Path)
		if r.ContentLength > 0 {
			httpRequestBytes.WithLabelValues(r.Method, route).Observe(float64(r.ContentLength))
		}

		m := httpsnoop.CaptureMetrics(next, w, r)
		code := strconv.Itoa(m.Code)
		httpRequests.WithLabelValues(r.Method, route, code).Inc()
		httpDuration.WithLabelValues(r.Method, route, code).Observe(m.Duration.Seconds())
		httpResponseBytes.WithLabelValues(r.Method, route).Observe(float64(m.Written))
	})
}

func routeLabel(path string) string {
	if routes[path] {
		return path
	}
	return "other"
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordAuthAttempt records an admin login attempt
func RecordAuthAttempt(success bool) {
	logins.WithLabelValues(outcome(success)).Inc()
}

// RecordSessionCheck records a session verification
func RecordSessionCheck(authenticated bool) {
	result := "unauthenticated"
	if authenticated {
		result = "authenticated"
	}
	sessionChecks.WithLabelValues(result).Inc()
}

func RecordContactSubmission() { contactSubmissions.Inc() }

func RecordContactStatusUpdate(status string) { contactStatusUpdates.WithLabelValues(status).Inc() }

// RecordContactNotification records the outcome of a notification e-mail:
// sent, skipped or failed.
func RecordContactNotification(status string) { contactNotifications.WithLabelValues(status).Inc() }

func RecordTeamMutation(operation string) { teamMutations.WithLabelValues(operation).Inc() }

func RecordImageUpload(success bool) { imageUploads.WithLabelValues(outcome(success)).Inc() }

func RecordRateLimited(endpoint string) { rateLimited.WithLabelValues(endpoint).Inc() }

// RecordDBQuery records one gateway transaction
func RecordDBQuery(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	dbQueries.WithLabelValues(operation, status).Inc()
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnections publishes the pool state
func UpdateDBConnections(inUse, idle int) {
	dbOpenConns.WithLabelValues("in_use").Set(float64(inUse))
	dbOpenConns.WithLabelValues("idle").Set(float64(idle))
}
