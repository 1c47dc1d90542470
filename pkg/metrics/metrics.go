package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QueueFullTotal counts producer-side push rejections on an SPSC ring
// (spec §7 QueueFull), labelled by queue. tickqueue.Ring.Push does not
// increment it itself; it only returns false, and no code in this
// repository increments it.
var QueueFullTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ttt_queue_full_total",
		Help: "Number of rejected pushes to an SPSC ring due to a full buffer",
	},
	[]string{"queue"},
)

// SequenceGapTotal counts order-book sequence gaps detected (spec §7
// SequenceGap).
var SequenceGapTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ttt_orderbook_sequence_gap_total",
		Help: "Number of sequence gaps detected by the order book",
	},
	[]string{"symbol"},
)

// RiskDeniedTotal counts RiskGate rejections by the check that failed
// (spec §4.6 / §7 RiskDenied).
var RiskDeniedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ttt_risk_denied_total",
		Help: "Number of orders denied by the pre-trade risk gate",
	},
	[]string{"reason"},
)

// FillsTotal counts simulated fills produced by the backtest fill model
// (spec §4.8), by side.
var FillsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ttt_backtest_fills_total",
		Help: "Number of simulated fills produced by the backtest fill model",
	},
	[]string{"side"},
)

// TickToQuoteLatency is a histogram, in seconds, for the wall-clock time
// from TickQueue.pop to a QuoteEngine decision. It is registered but not
// observed anywhere in this repository: neither the backtest driver loop
// nor the hot-path components record into it.
var TickToQuoteLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "ttt_tick_to_quote_latency_seconds",
		Help:    "Latency from tick dequeue to quote decision during replay",
		Buckets: prometheus.ExponentialBuckets(1e-9, 4, 12),
	},
)

func init() {
	prometheus.MustRegister(QueueFullTotal, SequenceGapTotal, RiskDeniedTotal, FillsTotal, TickToQuoteLatency)
}
