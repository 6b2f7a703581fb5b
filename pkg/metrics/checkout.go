package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records reservation and order placement outcomes.
type CheckoutMetrics struct {
	duration     *prometheus.HistogramVec
	reservations *prometheus.CounterVec
	compensation prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of order placement attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservations_total",
		Help: "Stock reservation attempts by outcome.",
	}, []string{"outcome"})
	compensation := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_compensation_failures_total",
		Help: "Compensating stock releases that could not be completed.",
	})
	reg.MustRegister(duration, reservations, compensation)
	return &CheckoutMetrics{
		duration:     duration,
		reservations: reservations,
		compensation: compensation,
	}
}

// ObserveCheckout records the duration of an order placement attempt.
func (c *CheckoutMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncReservation counts a reservation attempt with the given outcome.
func (c *CheckoutMetrics) IncReservation(outcome string) {
	if c == nil || c.reservations == nil {
		return
	}
	c.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCompensationFailure counts a failed compensating release.
func (c *CheckoutMetrics) IncCompensationFailure() {
	if c == nil || c.compensation == nil {
		return
	}
	c.compensation.Inc()
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
