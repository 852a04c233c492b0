// Package metrics provides Prometheus metrics for the inkwell frontend.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts content API round trips.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inkwell",
			Name:      "api_requests_total",
			Help:      "Total number of content API requests",
		},
		[]string{"operation", "status"},
	)

	// APIRequestDuration measures content API latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inkwell",
			Name:      "api_request_duration_seconds",
			Help:      "Duration of content API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// FeedTransitionsTotal counts feed controller state changes.
	FeedTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inkwell",
			Name:      "feed_transitions_total",
			Help:      "Total number of feed state transitions",
		},
		[]string{"from", "to"},
	)

	// FeedSessions tracks live feed sessions.
	FeedSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inkwell",
			Name:      "feed_sessions",
			Help:      "Number of live feed sessions",
		},
	)

	// ImageProxyTotal counts image proxy requests by outcome.
	ImageProxyTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inkwell",
			Name:      "image_proxy_total",
			Help:      "Total number of image proxy requests",
		},
		[]string{"result"},
	)
)

// Observer reports content API requests and feed transitions to Prometheus.
type Observer struct{}

// ObserveRequest records one content API round trip. A zero status means
// the request never got a response.
func (Observer) ObserveRequest(op string, status int, d time.Duration) {
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	APIRequestsTotal.WithLabelValues(op, label).Inc()
	APIRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveTransition records a feed state change.
func (Observer) ObserveTransition(from, to string) {
	FeedTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordImage records an image proxy outcome: "hit", "miss", "rejected",
// "limited" or "error".
func RecordImage(result string) {
	ImageProxyTotal.WithLabelValues(result).Inc()
}

// SetFeedSessions sets the live feed session gauge.
func SetFeedSessions(n int) {
	FeedSessions.Set(float64(n))
}
