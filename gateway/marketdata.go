// Package gateway specifies the engine's outward-facing transports. The
// binary/TCP order-entry gateway is an external collaborator represented
// here purely as the Codec interface below; no concrete framing ships
// with this repo. The market-data websocket stream, a thin read-only
// fan-out of trades and book views, is fully implemented on top of
// gorilla/websocket.
package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/quasar-exchange/matching-engine/match"
)

// Codec is the contract a binary order-entry gateway must satisfy to
// sit in front of an engine: decode a wire request into a submit or
// cancel call, and encode an engine response back onto the wire. No
// concrete implementation ships here; framing, authentication, and
// transport are the gateway operator's concern, not the engine's.
type Codec interface {
	DecodeSubmit(frame []byte) (clientID int64, instrument string, side match.Side, price decimal.Decimal, quantity int64, err error)
	DecodeCancel(frame []byte) (orderID uint64, err error)
	EncodeOrderAck(order *match.Order) ([]byte, error)
	EncodeTrade(trade *match.Trade) ([]byte, error)
}

// tradeMessage is the JSON shape streamed to market-data subscribers.
type tradeMessage struct {
	Type       string          `json:"type"`
	Instrument string          `json:"instrument"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	Timestamp  time.Time       `json:"timestamp"`
}

// bookMessage is the JSON shape streamed for a top-of-book update.
type bookMessage struct {
	Type       string          `json:"type"`
	Instrument string          `json:"instrument"`
	Bids       []match.Level   `json:"bids"`
	Asks       []match.Level   `json:"asks"`
	Spread     decimal.Decimal `json:"spread"`
}

// MarketData streams trades and book-level updates over websocket
// connections. It holds no reference to the engine itself: callers feed
// it via OnTrade (registerable as a match.TradeSink) and
// PublishBook (called from a poll loop, see cmd/engine-demo).
type MarketData struct {
	trades   *hub[tradeMessage]
	books    *hub[bookMessage]
	upgrader websocket.Upgrader
}

// NewMarketData returns a MarketData ready to serve.
func NewMarketData() *MarketData {
	return &MarketData{
		trades:   newHub[tradeMessage](),
		books:    newHub[bookMessage](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// OnTrade implements match.TradeSink, broadcasting to trade subscribers.
func (m *MarketData) OnTrade(trade *match.Trade) {
	m.trades.Broadcast(tradeMessage{
		Type:       "trade",
		Instrument: trade.Instrument,
		Price:      trade.Price,
		Quantity:   trade.Quantity,
		Timestamp:  trade.Timestamp,
	})
}

// PublishBook broadcasts a top-of-book snapshot for instrument.
func (m *MarketData) PublishBook(instrument string, bids, asks []match.Level, spread decimal.Decimal) {
	m.books.Broadcast(bookMessage{
		Type:       "book",
		Instrument: instrument,
		Bids:       bids,
		Asks:       asks,
		Spread:     spread,
	})
}

// ServeTrades upgrades the request to a websocket and streams every
// subsequent trade until the client disconnects.
func (m *MarketData) ServeTrades(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := m.trades.Subscribe(64)
	defer m.trades.Unsubscribe(sub)

	for msg := range sub.ch {
		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// ServeBook upgrades the request to a websocket and streams every
// subsequent book snapshot until the client disconnects.
func (m *MarketData) ServeBook(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := m.books.Subscribe(16)
	defer m.books.Unsubscribe(sub)

	for msg := range sub.ch {
		payload, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
