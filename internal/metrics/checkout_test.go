package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.State("initiated")
	m.State("initiated")
	m.State("committed")
	m.State("")
	m.ObserveCheckout("committed", 20*time.Millisecond)
	m.CartOp("add", nil)
	m.CartOp("add", errors.New("boom"))

	mfs, err := reg.Gather()
	require.NoError(t, err)

	assert.Equal(t, 2.0, counterValue(t, mfs, "storefront_checkout_state_total", map[string]string{"state": "initiated"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "storefront_checkout_state_total", map[string]string{"state": "committed"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "storefront_checkout_state_total", map[string]string{"state": "unknown"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "storefront_cart_operations_total", map[string]string{"op": "add", "result": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, mfs, "storefront_cart_operations_total", map[string]string{"op": "add", "result": "error"}))

	h := findMetric(t, mfs, "storefront_checkout_duration_seconds", map[string]string{"outcome": "committed"})
	assert.Equal(t, uint64(1), h.GetHistogram().GetSampleCount())
	assert.Greater(t, h.GetHistogram().GetSampleSum(), 0.0)
}

func TestCheckoutMetricsNilSafe(t *testing.T) {
	var m *CheckoutMetrics
	m.State("committed")
	m.ObserveCheckout("committed", time.Second)
	m.CartOp("add", nil)

	NewCheckoutMetrics(nil).State("committed")
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	return findMetric(t, mfs, name, labels).GetCounter().GetValue()
}

func findMetric(t *testing.T, mfs []*dto.MetricFamily, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchesLabels(metric.GetLabel(), labels) {
				return metric
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	got := 0
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; ok && v == p.GetValue() {
			got++
		}
	}
	return got == len(want)
}
