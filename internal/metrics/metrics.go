package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "freelance"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Committed project lifecycle transitions.",
		},
		[]string{"from", "to"},
	)

	workflowErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "errors_total",
			Help:      "Workflow operations that failed, by error code.",
		},
		[]string{"op", "code"},
	)

	relayMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Realtime relay deliveries by result.",
		},
		[]string{"result"},
	)

	projectsByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "projects",
			Name:      "by_state",
			Help:      "Number of projects currently in each lifecycle state.",
		},
		[]string{"state"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		transitions,
		workflowErrors,
		relayMessages,
		projectsByState,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// TrackInFlight increments the in-flight gauge and returns its release.
func TrackInFlight() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// RecordHTTP records one finished request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func RecordHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordTransition(from, to string) {
	transitions.WithLabelValues(from, to).Inc()
}

func RecordWorkflowError(op, code string) {
	workflowErrors.WithLabelValues(op, code).Inc()
}

// Relay results.
const (
	RelayDelivered     = "delivered"
	RelayDropped       = "dropped"
	RelayPublished     = "published"
	RelayPublishFailed = "publish_failed"
)

func RecordRelay(result string) {
	relayMessages.WithLabelValues(result).Inc()
}

// SetProjectsByState replaces the project gauge values.
func SetProjectsByState(counts map[string]int64) {
	for state, n := range counts {
		projectsByState.WithLabelValues(state).Set(float64(n))
	}
}
