package match

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable record of one match. Constructed only by an
// OrderBook during matching; trade_id is local to the book that produced
// it (spec resolution of the book-local-vs-global Open Question: see
// DESIGN.md). The trade price is always the maker's limit price.
type Trade struct {
	TradeID       uint64
	Instrument    string
	Price         decimal.Decimal
	Quantity      int64
	TakerOrderID  uint64
	MakerOrderID  uint64
	TakerClientID int64
	MakerClientID int64
	Timestamp     time.Time
}

// Notional returns price * quantity.
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

// Less orders trades by timestamp then trade id, giving a stable total
// order for sorting/merging trade streams from a single book.
func (t *Trade) Less(other *Trade) bool {
	if !t.Timestamp.Equal(other.Timestamp) {
		return t.Timestamp.Before(other.Timestamp)
	}
	return t.TradeID < other.TradeID
}

// matchResult pairs a Trade with whether the maker it consumed reached
// Filled status as a result. Internal to the match package: the engine
// uses makerFilled to maintain ActiveOrders without re-deriving it from
// book state that may have already moved on by the time it looks.
type matchResult struct {
	trade       *Trade
	makerFilled bool
}
