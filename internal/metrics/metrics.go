// Package metrics holds the Prometheus collectors the trading loop updates.
//
//   - tradebot_cycles_total{outcome}      cycles by outcome (traded|held|skipped|failed)
//   - tradebot_cycle_errors_total{phase}  failed cycles by phase
//   - tradebot_decisions_total{signal}    policy decisions (BUY|SELL|HOLD)
//   - tradebot_orders_total{mode,side}    executed market orders
//   - tradebot_cycle_duration_seconds     wall time of one cycle
//   - tradebot_midquote{asset_pair}       last observed midquote
//   - tradebot_archived_rows_total{kind}  rows exported by the archiver
//
// Collectors are registered in init() and exposed by Handler at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_cycles_total",
			Help: "Trading cycles by outcome",
		},
		[]string{"outcome"},
	)

	CycleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_cycle_errors_total",
			Help: "Failed trading cycles by phase",
		},
		[]string{"phase"},
	)

	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_decisions_total",
			Help: "Policy decisions taken",
		},
		[]string{"signal"},
	)

	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_orders_total",
			Help: "Market orders executed",
		},
		[]string{"mode", "side"}, // mode: live|paper
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradebot_cycle_duration_seconds",
			Help:    "Wall time of one trading cycle, sleep excluded",
			Buckets: prometheus.DefBuckets,
		},
	)

	Midquote = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradebot_midquote",
			Help: "Last observed midquote",
		},
		[]string{"asset_pair"},
	)

	ArchivedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradebot_archived_rows_total",
			Help: "Rows exported to blob storage",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(Cycles, CycleErrors, Decisions, Orders)
	prometheus.MustRegister(CycleDuration, Midquote, ArchivedRows)
}

// Handler serves the default registry in the text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
