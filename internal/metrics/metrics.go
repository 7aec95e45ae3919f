// Package metrics holds the Prometheus collectors of the API and feed servers.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cheers",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheers",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cheers",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	cheerToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheers",
			Subsystem: "reviews",
			Name:      "cheer_toggles_total",
			Help:      "Cheer toggles by resulting state.",
		},
		[]string{"state"},
	)

	friendLinks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheers",
			Subsystem: "friends",
			Name:      "changes_total",
			Help:      "Friendship additions and removals.",
		},
		[]string{"op"},
	)

	commentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cheers",
			Subsystem: "comments",
			Name:      "created_total",
			Help:      "Comments created.",
		},
	)

	authFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cheers",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Rejected logins and session checks.",
		},
		[]string{"reason"},
	)

	feedConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cheers",
			Subsystem: "feed",
			Name:      "connections",
			Help:      "Open live feed websocket connections.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		cheerToggles,
		friendLinks,
		commentsCreated,
		authFailures,
		feedConnections,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler is mux middleware recording request metrics by route template.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r)
		if route == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordCheerToggle counts a toggle by the caller's resulting state.
func RecordCheerToggle(cheered bool) {
	if cheered {
		cheerToggles.WithLabelValues("cheered").Inc()
	} else {
		cheerToggles.WithLabelValues("uncheered").Inc()
	}
}

// RecordFriendChange counts an "add" or "remove".
func RecordFriendChange(op string) {
	friendLinks.WithLabelValues(op).Inc()
}

func RecordCommentCreated() {
	commentsCreated.Inc()
}

// RecordAuthFailure counts a rejected credential or session, e.g. "bad_credentials", "invalid_token".
func RecordAuthFailure(reason string) {
	authFailures.WithLabelValues(reason).Inc()
}

// FeedConnectionOpened and FeedConnectionClosed track live websocket connections.
func FeedConnectionOpened() { feedConnections.Inc() }

func FeedConnectionClosed() { feedConnections.Dec() }

// routeLabel uses the matched mux template so path parameters do not explode cardinality.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
