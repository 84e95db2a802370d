package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value returns the sum of all samples of the named family whose labels
// include want.
func value(t *testing.T, name string, want map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	samples:
		for _, m := range f.GetMetric() {
			labels := make(map[string]string)
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue samples
				}
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestObserveOrder(t *testing.T) {
	success := map[string]string{"kind": "buy", "mode": "paper", "result": "success"}
	before := value(t, "polytg_orders_total", success)

	ObserveOrder("buy", "paper", true, 0.25)
	ObserveOrder("buy", "paper", false, 0.5)

	assert.Equal(t, before+1, value(t, "polytg_orders_total", success))
	assert.GreaterOrEqual(t, value(t, "polytg_orders_total", map[string]string{"result": "failure"}), 1.0)
	assert.GreaterOrEqual(t, value(t, "polytg_order_seconds", map[string]string{"kind": "buy"}), 2.0)
}

func TestCountersAndGauge(t *testing.T) {
	IncAction("cmd_buy")
	IncActionError("busy")
	IncListingFetch("cache")
	SetActiveSessions(4)

	assert.GreaterOrEqual(t, value(t, "polytg_actions_total", map[string]string{"action": "cmd_buy"}), 1.0)
	assert.GreaterOrEqual(t, value(t, "polytg_action_errors_total", map[string]string{"class": "busy"}), 1.0)
	assert.GreaterOrEqual(t, value(t, "polytg_listing_fetches_total", map[string]string{"source": "cache"}), 1.0)
	assert.Equal(t, 4.0, value(t, "polytg_active_sessions", nil))
}
