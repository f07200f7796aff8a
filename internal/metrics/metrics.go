package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts handled requests by route template and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tms_http_requests_total",
			Help: "HTTP requests handled, by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tms_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tms_login_attempts_total",
		Help: "Login attempts by method (student, driver, staff, mock, oauth) and outcome",
	}, []string{"method", "outcome"})

	OAuthExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tms_oauth_code_exchanges_total",
		Help: "Parent app code exchanges; shared=true when a concurrent caller reused an in-flight exchange",
	}, []string{"shared", "outcome"})
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tms_bookings_created_total",
		Help: "Seat bookings confirmed",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tms_bookings_cancelled_total",
		Help: "Seat bookings cancelled by students",
	})

	PaymentTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tms_payment_transitions_total",
		Help: "Semester payment status transitions by source (verify, webhook, sweeper)",
	}, []string{"source", "status"})
)

var (
	LocationUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tms_location_updates_total",
		Help: "Accepted location updates by subject type",
	}, []string{"subject"})

	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tms_live_location_subscribers",
		Help: "Open websocket subscriptions for live bus location",
	})

	PushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tms_push_deliveries_total",
		Help: "Web push deliveries by outcome (sent, gone, failed)",
	}, []string{"outcome"})
)
