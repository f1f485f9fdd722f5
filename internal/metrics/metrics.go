package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wakepark",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wakepark",
			Name:      "bookings_created_total",
			Help:      "Confirmed bookings.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wakepark",
			Name:      "bookings_cancelled_total",
			Help:      "Cancelled bookings.",
		},
	)

	slotsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wakepark",
			Name:      "slots_generated_total",
			Help:      "Time slots written by the generator.",
		},
	)

	leadTimeDenied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wakepark",
			Name:      "lead_time_denied_total",
			Help:      "Online bookings rejected by the lead-time policy.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingsCancelled, slotsGenerated, leadTimeDenied)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

func IncBookingsCreated()   { bookingsCreated.Inc() }
func IncBookingsCancelled() { bookingsCancelled.Inc() }

// AddSlotsGenerated records a batch of generated slots.
func AddSlotsGenerated(n int) {
	if n > 0 {
		slotsGenerated.Add(float64(n))
	}
}

func IncLeadTimeDenied() { leadTimeDenied.Inc() }
