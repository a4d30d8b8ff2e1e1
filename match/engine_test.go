package match

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEngine_SingleRestingBuy(t *testing.T) {
	e := NewEngine()

	order, err := e.Submit(100, "BTC-USD", Buy, decimal.NewFromInt(50000), 10)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), order.ID)

	bid, ok := e.TopBid("BTC-USD")
	assert.True(t, ok)
	assert.True(t, bid.Equal(decimal.NewFromInt(50000)))
	_, ok = e.TopAsk("BTC-USD")
	assert.False(t, ok)

	stats := e.Stats()
	assert.Equal(t, EngineStats{TotalOrders: 1, ActiveOrders: 1}, stats)
}

func TestEngine_ExactMatchUpdatesStats(t *testing.T) {
	e := NewEngine()
	_, _ = e.Submit(100, "BTC-USD", Buy, decimal.NewFromInt(50000), 10)

	var captured []*Trade
	e.SetTradeSink(TradeSinkFunc(func(trade *Trade) {
		captured = append(captured, trade)
	}))

	_, err := e.Submit(101, "BTC-USD", Sell, decimal.NewFromInt(50000), 5)
	assert.NoError(t, err)

	assert.Len(t, captured, 1)
	assert.Equal(t, int64(5), captured[0].Quantity)

	stats := e.Stats()
	assert.Equal(t, uint64(2), stats.TotalOrders)
	assert.Equal(t, uint64(1), stats.TotalTrades)
	assert.Equal(t, uint64(1), stats.ActiveOrders)
}

func TestEngine_ValidationRejectsWithoutSideEffects(t *testing.T) {
	e := NewEngine()

	order, err := e.Submit(100, "BTC-USD", Buy, decimal.NewFromInt(-1), 10)
	assert.ErrorIs(t, err, ErrInvalidParam)
	assert.Equal(t, StatusRejected, order.Status)

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.RejectedOrders)
	assert.Equal(t, uint64(0), stats.TotalOrders)
	assert.Equal(t, uint64(0), stats.ActiveOrders)

	_, ok := e.TopBid("BTC-USD")
	assert.False(t, ok, "a rejected order must not create a book")
}

func TestEngine_CancelIdempotence(t *testing.T) {
	e := NewEngine()
	order, _ := e.Submit(100, "BTC-USD", Buy, decimal.NewFromInt(50000), 10)

	assert.True(t, e.Cancel(order.ID))
	assert.False(t, e.Cancel(order.ID))

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.CancelledOrders)
	assert.Equal(t, uint64(0), stats.ActiveOrders)
}

func TestEngine_CancelOfFilledOrderReturnsFalse(t *testing.T) {
	e := NewEngine()
	maker, _ := e.Submit(100, "BTC-USD", Buy, decimal.NewFromInt(50000), 10)
	_, err := e.Submit(101, "BTC-USD", Sell, decimal.NewFromInt(50000), 10)
	assert.NoError(t, err)

	assert.False(t, e.Cancel(maker.ID))

	stats := e.Stats()
	assert.Equal(t, uint64(0), stats.CancelledOrders)
}

func TestEngine_CrossInstrumentIsolation(t *testing.T) {
	e := NewEngine()
	e.Submit(1, "BTC-USD", Buy, decimal.NewFromInt(50000), 5)
	e.Submit(2, "BTC-USD", Sell, decimal.NewFromInt(50001), 5)
	e.Submit(3, "ETH-USD", Buy, decimal.NewFromInt(4000), 5)
	e.Submit(4, "ETH-USD", Sell, decimal.NewFromInt(4001), 5)

	e.Submit(5, "BTC-USD", Buy, decimal.NewFromInt(50001), 5)

	ethBid, _ := e.TopBid("ETH-USD")
	ethAsk, _ := e.TopAsk("ETH-USD")
	assert.True(t, ethBid.Equal(decimal.NewFromInt(4000)))
	assert.True(t, ethAsk.Equal(decimal.NewFromInt(4001)))
}

func TestEngine_UnknownInstrumentQueriesReturnZero(t *testing.T) {
	e := NewEngine()
	_, ok := e.TopBid("NOPE")
	assert.False(t, ok)
	assert.True(t, e.Spread("NOPE").IsZero())
	assert.Empty(t, e.BidLevels("NOPE", 5))
}

func TestEngine_ShutdownRejectsLaterSubmit(t *testing.T) {
	e := NewEngine()
	e.Submit(1, "BTC-USD", Buy, decimal.NewFromInt(50000), 5)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, e.Shutdown(ctx))

	_, err := e.Submit(2, "BTC-USD", Sell, decimal.NewFromInt(50000), 5)
	assert.ErrorIs(t, err, ErrShutdown)
}

// TestEngine_ShutdownExcludesConcurrentSubmit hammers Submit and Shutdown
// from separate goroutines: every call that wins admission must complete
// in full (order routed, counters updated) before Shutdown can return, so
// the post-shutdown stats snapshot must never observe a half-applied
// submission.
func TestEngine_ShutdownExcludesConcurrentSubmit(t *testing.T) {
	e := NewEngine()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(clientID int64) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				e.Submit(clientID, "BTC-USD", Buy, decimal.NewFromInt(50000), 1)
			}
		}(int64(i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, e.Shutdown(ctx))
	close(stop)
	wg.Wait()

	stats := e.Stats()
	assert.Equal(t, stats.TotalOrders, stats.ActiveOrders)

	_, err := e.Submit(99, "BTC-USD", Buy, decimal.NewFromInt(50000), 1)
	assert.ErrorIs(t, err, ErrShutdown)
}
