package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayhaven",
			Name:      "booking_requests_total",
			Help:      "Count of booking requests by outcome.",
		},
		[]string{"outcome"},
	)

	cancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayhaven",
			Name:      "cancellations_total",
			Help:      "Count of cancellation requests by outcome.",
		},
		[]string{"outcome"},
	)

	profileUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayhaven",
			Name:      "profile_updates_total",
			Help:      "Count of profile saves by outcome.",
		},
		[]string{"outcome"},
	)

	sessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stayhaven",
			Name:      "sessions_total",
			Help:      "Count of login and logout events.",
		},
		[]string{"event"},
	)

	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stayhaven",
			Name:      "api_request_duration_seconds",
			Help:      "Latency of backend API calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingRequests, cancellations, profileUpdates, sessions, apiDuration)
	})
}

func IncBookingRequest(outcome string) {
	bookingRequests.WithLabelValues(outcome).Inc()
}

func IncCancellation(outcome string) {
	cancellations.WithLabelValues(outcome).Inc()
}

func IncProfileUpdate(outcome string) {
	profileUpdates.WithLabelValues(outcome).Inc()
}

func IncSession(event string) {
	sessions.WithLabelValues(event).Inc()
}

func ObserveAPIRequest(endpoint, status string, d time.Duration) {
	apiDuration.WithLabelValues(endpoint, status).Observe(d.Seconds())
}
