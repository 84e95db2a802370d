// Package metrics holds the Prometheus collectors for the bot.
//
//   - polytg_orders_total{kind,mode,result}    execution attempts (result: success|failure)
//   - polytg_order_seconds{kind,mode}          backend order call latency
//   - polytg_actions_total{action}             inbound user actions by type
//   - polytg_action_errors_total{class}        per-action errors by class
//   - polytg_listing_fetches_total{source}     listing lookups (source: api|cache)
//   - polytg_active_sessions                   sessions created since start
//
// Collectors are registered in init() and served on /metrics by the status server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytg_orders_total",
			Help: "Order execution attempts",
		},
		[]string{"kind", "mode", "result"},
	)

	orderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polytg_order_seconds",
			Help:    "Latency of trading backend order calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "mode"},
	)

	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytg_actions_total",
			Help: "Inbound user actions",
		},
		[]string{"action"},
	)

	actionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytg_action_errors_total",
			Help: "User actions that ended in an error view, by error class",
		},
		[]string{"class"},
	)

	listingFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polytg_listing_fetches_total",
			Help: "Listing lookups by source (api|cache)",
		},
		[]string{"source"},
	)

	sessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "polytg_active_sessions",
			Help: "Sessions created since process start",
		},
	)
)

func init() {
	prometheus.MustRegister(orders, orderLatency)
	prometheus.MustRegister(actions, actionErrors)
	prometheus.MustRegister(listingFetches, sessions)
}

func ObserveOrder(kind, mode string, success bool, seconds float64) {
	result := "failure"
	if success {
		result = "success"
	}
	orders.WithLabelValues(kind, mode, result).Inc()
	orderLatency.WithLabelValues(kind, mode).Observe(seconds)
}

func IncAction(action string)       { actions.WithLabelValues(action).Inc() }
func IncActionError(class string)   { actionErrors.WithLabelValues(class).Inc() }
func IncListingFetch(source string) { listingFetches.WithLabelValues(source).Inc() }
func SetActiveSessions(n int)       { sessions.Set(float64(n)) }
