// Package metrics exports engine counters and book depth through
// github.com/prometheus/client_golang, using a dedicated registry and
// gauge-vec layout for per-instrument, per-side order-book telemetry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quasar-exchange/matching-engine/match"
)

// Collector exports one engine's counters and per-instrument book depth
// to a dedicated Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	totalOrders     prometheus.Gauge
	activeOrders    prometheus.Gauge
	totalTrades     prometheus.Gauge
	cancelledOrders prometheus.Gauge
	rejectedOrders  prometheus.Gauge

	bookDepth  *prometheus.GaugeVec
	bookSpread *prometheus.GaugeVec
	tradeSize  prometheus.Histogram
}

// NewCollector builds a Collector registered under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		totalOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders that passed validation.",
		}),
		activeOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orders_active",
			Help:      "Orders neither filled, cancelled, nor rejected.",
		}),
		totalTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades emitted across all instruments.",
		}),
		cancelledOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orders_cancelled",
			Help:      "Orders successfully cancelled.",
		}),
		rejectedOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orders_rejected",
			Help:      "Orders rejected at validation.",
		}),
		bookDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "book_depth",
			Help:      "Resident quantity by instrument and side.",
		}, []string{"instrument", "side"}),
		bookSpread: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "book_spread",
			Help:      "Top-ask minus top-bid by instrument.",
		}, []string{"instrument"}),
		tradeSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_quantity",
			Help:      "Distribution of emitted trade quantities.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		c.totalOrders, c.activeOrders, c.totalTrades,
		c.cancelledOrders, c.rejectedOrders,
		c.bookDepth, c.bookSpread, c.tradeSize,
	)

	return c
}

// OnTrade implements match.TradeSink, recording trade quantity into the
// distribution. Register alongside any other sink via a fan-out, since
// an engine holds exactly one sink.
func (c *Collector) OnTrade(trade *match.Trade) {
	c.tradeSize.Observe(float64(trade.Quantity))
}

// ObserveStats pushes a point-in-time EngineStats snapshot into the
// gauges. Call on a ticker; stats are cheap to read (see
// match.Engine.Stats).
func (c *Collector) ObserveStats(stats match.EngineStats) {
	c.totalOrders.Set(float64(stats.TotalOrders))
	c.activeOrders.Set(float64(stats.ActiveOrders))
	c.totalTrades.Set(float64(stats.TotalTrades))
	c.cancelledOrders.Set(float64(stats.CancelledOrders))
	c.rejectedOrders.Set(float64(stats.RejectedOrders))
}

// ObserveBook pushes one instrument's current depth and spread.
func (c *Collector) ObserveBook(instrument string, bidVolume, askVolume int64, spread float64) {
	c.bookDepth.WithLabelValues(instrument, "bid").Set(float64(bidVolume))
	c.bookDepth.WithLabelValues(instrument, "ask").Set(float64(askVolume))
	c.bookSpread.WithLabelValues(instrument).Set(spread)
}

// Handler returns the HTTP handler serving this collector's registry in
// the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
