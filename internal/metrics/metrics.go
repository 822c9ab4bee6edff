package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xparking",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	checkIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xparking",
			Name:      "gate_checkins_total",
			Help:      "Vehicle check-ins by result.",
		},
		[]string{"result"},
	)

	checkOuts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xparking",
			Name:      "gate_checkouts_total",
			Help:      "Vehicle check-outs by result.",
		},
		[]string{"result"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xparking",
			Name:      "bookings_created_total",
			Help:      "Bookings accepted by the capacity check.",
		},
	)

	paymentsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xparking",
			Name:      "payments_completed_total",
			Help:      "Completed payments by settlement path.",
		},
		[]string{"path"},
	)

	reconcileAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xparking",
			Name:      "reconcile_attempts_total",
			Help:      "Bank feed reconcile attempts by result.",
		},
		[]string{"result"},
	)

	exitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xparking",
			Name:      "exit_decisions_total",
			Help:      "Exit authorization decisions by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			checkIns,
			checkOuts,
			bookingsCreated,
			paymentsCompleted,
			reconcileAttempts,
			exitDecisions,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncCheckIn(result string) {
	checkIns.WithLabelValues(result).Inc()
}

func IncCheckOut(result string) {
	checkOuts.WithLabelValues(result).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncPaymentCompleted(path string) {
	paymentsCompleted.WithLabelValues(path).Inc()
}

func IncReconcile(result string) {
	reconcileAttempts.WithLabelValues(result).Inc()
}

func IncExitDecision(outcome string) {
	exitDecisions.WithLabelValues(outcome).Inc()
}
