// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Vote metrics
	VotesAccepted    *prometheus.CounterVec
	VotesRateLimited prometheus.Counter
	VotesThrottled   prometheus.Counter

	// Registry metrics
	TokensSubmitted prometheus.Counter
	TokensRemoved   prometheus.Counter
	AdminOverrides  *prometheus.CounterVec

	// Notification metrics
	Broadcasts           prometheus.Counter
	BroadcastsDropped    *prometheus.CounterVec
	WebSocketConnections prometheus.Gauge

	// Storage metrics
	StoreOpDuration *prometheus.HistogramVec
	StoreOpErrors   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered on reg.
// A nil reg registers on the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "token_board"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		VotesAccepted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "accepted_total",
			Help:      "Total number of accepted votes by symbol",
		}, []string{"symbol"}),
		VotesRateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "rate_limited_total",
			Help:      "Total number of votes rejected inside the per-voter window",
		}),
		VotesThrottled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "throttled_total",
			Help:      "Total number of vote requests rejected by the burst throttle",
		}),

		TokensSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tokens_submitted_total",
			Help:      "Total number of approved token submissions",
		}),
		TokensRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "tokens_removed_total",
			Help:      "Total number of removed tokens",
		}),
		AdminOverrides: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "admin_overrides_total",
			Help:      "Total number of admin overrides by field",
		}, []string{"field"}),

		Broadcasts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "broadcasts_total",
			Help:      "Total number of vote updates published",
		}),
		BroadcastsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Total number of vote updates dropped by observer",
		}, []string{"observer"}),
		WebSocketConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "websocket_connections",
			Help:      "Number of open WebSocket connections",
		}),

		StoreOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		StoreOpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_errors_total",
			Help:      "Total number of store operation errors",
		}, []string{"backend", "operation"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status",
		}, []string{"route", "status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordVoteAccepted increments the accepted votes counter.
func RecordVoteAccepted(symbol string) {
	DefaultMetrics.VotesAccepted.WithLabelValues(symbol).Inc()
}

// RecordVoteRateLimited increments the rate-limited votes counter.
func RecordVoteRateLimited() {
	DefaultMetrics.VotesRateLimited.Inc()
}

// RecordVoteThrottled increments the burst throttle counter.
func RecordVoteThrottled() {
	DefaultMetrics.VotesThrottled.Inc()
}

// RecordTokenSubmitted increments the submitted tokens counter.
func RecordTokenSubmitted() {
	DefaultMetrics.TokensSubmitted.Inc()
}

// RecordTokenRemoved increments the removed tokens counter.
func RecordTokenRemoved() {
	DefaultMetrics.TokensRemoved.Inc()
}

// RecordAdminOverride records an admin write to votes or ranking.
func RecordAdminOverride(field string) {
	DefaultMetrics.AdminOverrides.WithLabelValues(field).Inc()
}

// RecordBroadcast increments the published updates counter.
func RecordBroadcast() {
	DefaultMetrics.Broadcasts.Inc()
}

// RecordBroadcastDropped records an update an observer could not take.
func RecordBroadcastDropped(observer string) {
	DefaultMetrics.BroadcastsDropped.WithLabelValues(observer).Inc()
}

// UpdateWebSocketConnections sets the open connections gauge.
func UpdateWebSocketConnections(n int) {
	DefaultMetrics.WebSocketConnections.Set(float64(n))
}

// RecordStoreOp records store operation metrics.
func RecordStoreOp(backend, operation string, seconds float64, err error) {
	DefaultMetrics.StoreOpDuration.WithLabelValues(backend, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.StoreOpErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordHTTPRequest counts an API request.
func RecordHTTPRequest(route string, status int) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
