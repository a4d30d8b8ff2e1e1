package match

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderBook_EmptyBookRests(t *testing.T) {
	book := NewOrderBook("BTC-USD")

	buy := newTestOrder(1, Buy, 50000, 10)
	trades := book.Process(buy)

	assert.Empty(t, trades)
	bid, ok := book.TopBid()
	assert.True(t, ok)
	assert.True(t, bid.Equal(decimal.NewFromInt(50000)))
	_, ok = book.TopAsk()
	assert.False(t, ok)
}

func TestOrderBook_ExactMatchProducesOneTrade(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	book.Process(newTestOrder(1, Buy, 50000, 10))

	trades := book.Process(newTestOrder(2, Sell, 50000, 5))

	assert.Len(t, trades, 1)
	assert.Equal(t, int64(5), trades[0].Quantity)
	assert.True(t, trades[0].Price.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, uint64(2), trades[0].TakerOrderID)
	assert.Equal(t, uint64(1), trades[0].MakerOrderID)

	bid, ok := book.TopBid()
	assert.True(t, ok)
	assert.True(t, bid.Equal(decimal.NewFromInt(50000)))
}

func TestOrderBook_SweepThreeMakers(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	book.Process(newTestOrder(1, Sell, 50000, 3))
	book.Process(newTestOrder(2, Sell, 50001, 4))
	book.Process(newTestOrder(3, Sell, 50002, 5))

	trades := book.Process(newTestOrder(4, Buy, 50003, 15))

	assert.Len(t, trades, 3)
	assert.Equal(t, int64(3), trades[0].Quantity)
	assert.Equal(t, int64(4), trades[1].Quantity)
	assert.Equal(t, int64(5), trades[2].Quantity)
	assert.True(t, trades[0].Price.Equal(decimal.NewFromInt(50000)))
	assert.True(t, trades[1].Price.Equal(decimal.NewFromInt(50001)))
	assert.True(t, trades[2].Price.Equal(decimal.NewFromInt(50002)))

	bid, ok := book.TopBid()
	assert.True(t, ok)
	assert.True(t, bid.Equal(decimal.NewFromInt(50003)))
	assert.Equal(t, int64(3), book.BidVolume())
}

func TestOrderBook_PartialFillThenCancelMakerResidual(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	book.Process(newTestOrder(1, Buy, 50000, 10))
	trades := book.Process(newTestOrder(2, Sell, 50000, 4))
	assert.Len(t, trades, 1)
	assert.Equal(t, int64(4), trades[0].Quantity)

	assert.True(t, book.Cancel(1))
	assert.False(t, book.Cancel(1))

	_, ok := book.TopBid()
	assert.False(t, ok)
}

func TestOrderBook_CancelOfFilledOrderReturnsFalse(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	book.Process(newTestOrder(1, Buy, 50000, 10))
	trades := book.Process(newTestOrder(2, Sell, 50000, 10))
	assert.Len(t, trades, 1)

	assert.False(t, book.Cancel(1))
	assert.False(t, book.Cancel(2))
}

func TestOrderBook_CancelThenMatchRace(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	book.Process(newTestOrder(1, Buy, 50000, 10))
	assert.True(t, book.Cancel(1))

	trades := book.Process(newTestOrder(2, Sell, 50000, 10))

	assert.Empty(t, trades)
	ask, ok := book.TopAsk()
	assert.True(t, ok)
	assert.True(t, ask.Equal(decimal.NewFromInt(50000)))
}

func TestOrderBook_CrossableAtOrBetterPriceMatches(t *testing.T) {
	book := NewOrderBook("BTC-USD")
	book.Process(newTestOrder(1, Sell, 50000, 5))

	trades := book.Process(newTestOrder(2, Buy, 50010, 5))

	assert.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(decimal.NewFromInt(50000)), "trade executes at maker's price")
}
