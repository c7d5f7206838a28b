package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempts and cart mutations.
type CheckoutMetrics struct {
	states   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cartOps  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the storefront metrics on reg. A nil reg yields a no-op collector.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	states := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "checkout_state_total",
		Help:      "Checkout attempts by state reached.",
	}, []string{"state"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "checkout_duration_seconds",
		Help:      "placeOrder latency by outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "cart_operations_total",
		Help:      "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	reg.MustRegister(states, duration, cartOps)
	return &CheckoutMetrics{states: states, duration: duration, cartOps: cartOps}
}

// State counts a checkout reaching state.
func (m *CheckoutMetrics) State(state string) {
	if m == nil || m.states == nil {
		return
	}
	m.states.WithLabelValues(normalizeLabel(state)).Inc()
}

// ObserveCheckout records how long a placeOrder call took to reach its outcome.
func (m *CheckoutMetrics) ObserveCheckout(outcome string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(outcome)).Observe(d.Seconds())
}

func (m *CheckoutMetrics) CartOp(op string, err error) {
	if m == nil || m.cartOps == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cartOps.WithLabelValues(normalizeLabel(op), result).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
