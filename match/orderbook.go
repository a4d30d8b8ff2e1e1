package match

import (
	"sync"

	"github.com/shopspring/decimal"
)

// OrderBook maintains price-time priority for a single instrument. All
// matching and cancellation state mutation happens under book.mu, the
// only lock in the engine that guards resident order state; it is held
// for the duration of a single Process/Cancel call (or query) and never across an I/O
// or callback boundary (spec's lock-ordering discipline: the trade sink
// is invoked by the engine only after this lock is released).
type OrderBook struct {
	mu          sync.Mutex
	instrument  string
	bids        *sideQueue
	asks        *sideQueue
	nextTradeID uint64
}

// NewOrderBook creates an empty book for instrument.
func NewOrderBook(instrument string) *OrderBook {
	return &OrderBook{
		instrument: instrument,
		bids:       newBidQueue(),
		asks:       newAskQueue(),
	}
}

// Instrument returns the book's instrument identifier.
func (b *OrderBook) Instrument() string {
	return b.instrument
}

func (b *OrderBook) sides(side Side) (mine, opposite *sideQueue) {
	if side == Buy {
		return b.bids, b.asks
	}
	return b.asks, b.bids
}

// crossable reports whether maker's price can still satisfy incoming's
// limit: for a buy incoming, the maker's ask must be at or below
// incoming's price; for a sell incoming, the maker's bid must be at or
// above it.
func crossable(incoming, maker *Order) bool {
	if incoming.Side == Buy {
		return !maker.Price.GreaterThan(incoming.Price)
	}
	return !maker.Price.LessThan(incoming.Price)
}

// Process runs the matching algorithm for incoming (the taker): it walks
// the opposite side from the head, lazily discarding stale (cancelled or
// filled) entries, emitting a trade for every crossable maker until
// incoming is exhausted or the book runs out of crossable liquidity.
// Any remaining quantity rests in incoming's own side, unless incoming
// was cancelled out from under the caller before this call (it never
// is, in this engine, since Process and Cancel are mutually exclusive
// under the same book mutex). After matching, both sides' heads are
// given one more lazy-reclamation pass.
func (b *OrderBook) Process(incoming *Order) []*Trade {
	results := b.process(incoming)
	trades := make([]*Trade, 0, len(results))
	for _, r := range results {
		trades = append(trades, r.trade)
	}
	return trades
}

// process is the internal form returning matchResult, so the engine can
// learn which trades filled their maker without re-deriving it from book
// state that may have moved on by the time the engine inspects it.
func (b *OrderBook) process(incoming *Order) []matchResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	mine, opposite := b.sides(incoming.Side)

	var results []matchResult

	for incoming.Remaining() > 0 {
		maker := opposite.peekHead()
		if maker == nil {
			break
		}

		if maker.Status == StatusCancelled || maker.IsFilled() {
			opposite.remove(maker)
			continue
		}

		if !crossable(incoming, maker) {
			break
		}

		qty := incoming.Remaining()
		if maker.Remaining() < qty {
			qty = maker.Remaining()
		}

		b.nextTradeID++
		trade := &Trade{
			TradeID:       b.nextTradeID,
			Instrument:    b.instrument,
			Price:         maker.Price,
			Quantity:      qty,
			TakerOrderID:  incoming.ID,
			MakerOrderID:  maker.ID,
			TakerClientID: incoming.ClientID,
			MakerClientID: maker.ClientID,
			Timestamp:     maker.UpdatedAt,
		}

		incoming.Fill(qty)
		maker.Fill(qty)
		trade.Timestamp = maker.UpdatedAt

		makerFilled := maker.IsFilled()
		if makerFilled {
			opposite.remove(maker)
		}

		results = append(results, matchResult{trade: trade, makerFilled: makerFilled})
	}

	if incoming.Remaining() > 0 && incoming.Status != StatusCancelled {
		mine.insert(incoming)
	}

	b.bids.reclaimHead()
	b.asks.reclaimHead()

	return results
}

// Cancel marks order id as cancelled if it is resident and not already
// terminal. Physical removal is deferred to the next lazy-reclamation
// pass that finds it at the head of its side. Returns false if the id is
// unknown to this book or the order has already reached a terminal
// status.
func (b *OrderBook) Cancel(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	order := b.bids.order(id)
	if order == nil {
		order = b.asks.order(id)
	}
	if order == nil || order.Status.IsTerminal() {
		return false
	}

	order.Cancel()
	return true
}

// TopBid returns the best resting live bid price, or (0, false) if none.
func (b *OrderBook) TopBid() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.bestPrice()
}

// TopAsk returns the best resting live ask price, or (0, false) if none.
func (b *OrderBook) TopAsk() (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.bestPrice()
}

// Spread returns TopAsk - TopBid, or zero if either side is empty.
func (b *OrderBook) Spread() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	bid, bidOK := b.bids.bestPrice()
	ask, askOK := b.asks.bestPrice()
	if !bidOK || !askOK {
		return decimal.Zero
	}
	return ask.Sub(bid)
}

// BidLevels aggregates up to maxN bid price levels, best first.
func (b *OrderBook) BidLevels(maxN int) []Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.topLevels(maxN)
}

// AskLevels aggregates up to maxN ask price levels, best first.
func (b *OrderBook) AskLevels(maxN int) []Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.topLevels(maxN)
}

// BidVolume sums remaining quantity across all live resident bids.
func (b *OrderBook) BidVolume() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.totalVolume()
}

// AskVolume sums remaining quantity across all live resident asks.
func (b *OrderBook) AskVolume() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.totalVolume()
}

// OpenOrders returns copies of every resident order on both sides, bids
// then asks, each side best-price-first. A read-only companion to
// Levels for callers that need individual order detail rather than an
// aggregated view.
func (b *OrderBook) OpenOrders() []*Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.bids.snapshotOrders()
	out = append(out, b.asks.snapshotOrders()...)
	return out
}

// BookStats summarizes queue depth for monitoring.
type BookStats struct {
	BidOrderCount int
	BidLevelCount int
	AskOrderCount int
	AskLevelCount int
}

// Stats returns a point-in-time snapshot of queue depth.
func (b *OrderBook) Stats() BookStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BookStats{
		BidOrderCount: b.bids.orderCount(),
		BidLevelCount: b.bids.levelCount(),
		AskOrderCount: b.asks.orderCount(),
		AskLevelCount: b.asks.levelCount(),
	}
}
