// Package metrics exposes the replay runner's Prometheus
// instrumentation: trade/message throughput counters, a resync
// counter, and best-bid/ask gauges, registered once at package init and
// updated inline from the hot path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TradesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "larkbook",
		Name:      "trades_total",
		Help:      "Total number of trades executed by the matching engine.",
	})

	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "larkbook",
		Name:      "messages_total",
		Help:      "Total replay messages processed, by type.",
	}, []string{"type"})

	ResyncTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "larkbook",
		Name:      "resync_total",
		Help:      "Total number of resynchronizations triggered by a sequence gap or a detected book inconsistency.",
	})

	BestBid = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "larkbook",
		Name:      "best_bid",
		Help:      "Current best bid price in ticks.",
	})

	BestAsk = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "larkbook",
		Name:      "best_ask",
		Help:      "Current best ask price in ticks.",
	})

	OrderCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "larkbook",
		Name:      "resting_order_count",
		Help:      "Current number of resting orders in the book.",
	})
)

// Handler returns the standard promhttp handler for mounting at
// /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveQuotes updates the best-bid/ask gauges; ok mirrors
// OrderBook.GetQuotes's ok return and leaves the gauges at their last
// value when the book is one-sided or empty.
func ObserveQuotes(ask int64, bid int64, ok bool) {
	if !ok {
		return
	}
	BestAsk.Set(float64(ask))
	BestBid.Set(float64(bid))
}
