// Command engine-demo wires a matching engine to its market-data
// websocket feed and a Prometheus metrics endpoint, and submits a
// handful of sample orders so the wiring can be observed end to end.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quasar-exchange/matching-engine/gateway"
	"github.com/quasar-exchange/matching-engine/match"
	"github.com/quasar-exchange/matching-engine/metrics"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	match.SetLogger(logger)

	engine := match.NewEngine()
	marketData := gateway.NewMarketData()
	collector := metrics.NewCollector("matching_engine")

	engine.SetTradeSink(fanOutSink{marketData, collector})

	mux := http.NewServeMux()
	mux.HandleFunc("/stream/trades", marketData.ServeTrades)
	mux.HandleFunc("/stream/book", marketData.ServeBook)
	mux.Handle("/metrics", collector.Handler())

	go pollBookState(engine, marketData, collector)

	seedSampleOrders(engine, logger)

	logger.Info("engine-demo listening", "addr", ":8080")
	if err := http.ListenAndServe(":8080", mux); err != nil {
		logger.Error("server stopped", "error", err)
	}
}

// fanOutSink delivers each trade to both the market-data stream and the
// metrics collector; the engine holds exactly one sink, so fan-out
// composes multiple listeners behind it.
type fanOutSink struct {
	marketData *gateway.MarketData
	collector  *metrics.Collector
}

func (f fanOutSink) OnTrade(trade *match.Trade) {
	f.marketData.OnTrade(trade)
	f.collector.OnTrade(trade)
}

func pollBookState(engine *match.Engine, marketData *gateway.MarketData, collector *metrics.Collector) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		for _, instrument := range engine.KnownInstruments() {
			bids := engine.BidLevels(instrument, 10)
			asks := engine.AskLevels(instrument, 10)
			spread := engine.Spread(instrument)

			marketData.PublishBook(instrument, bids, asks, spread)
			collector.ObserveStats(engine.Stats())
		}
	}
}

func seedSampleOrders(engine *match.Engine, logger *slog.Logger) {
	orders := []struct {
		clientID int64
		side     match.Side
		price    int64
		quantity int64
	}{
		{100, match.Buy, 50000, 10},
		{101, match.Sell, 50000, 5},
		{102, match.Sell, 50001, 4},
		{103, match.Buy, 50002, 20},
	}

	for _, o := range orders {
		order, err := engine.Submit(o.clientID, "BTC-USD", o.side, decimal.NewFromInt(o.price), o.quantity)
		if err != nil {
			logger.Warn("order rejected", "error", err, "order_id", order.ID)
			continue
		}
		logger.Info("order submitted", "order_id", order.ID, "status", order.Status.String())
	}
}
