package match

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSink receives trades as they are produced, synchronously within
// the submission call that generated them and in emission order. It is
// invoked outside any book lock. A sink that panics is recovered by the
// engine and logged; processing of subsequent trades in the same batch
// continues (spec's "trade-sink exceptions are confined to the sink").
type TradeSink interface {
	OnTrade(trade *Trade)
}

// TradeSinkFunc adapts a function to a TradeSink.
type TradeSinkFunc func(trade *Trade)

func (f TradeSinkFunc) OnTrade(trade *Trade) { f(trade) }

// routeEntry records which instrument an order id belongs to, so Cancel
// can find its book without scanning every instrument.
type routeEntry struct {
	instrument string
}

// Engine routes submissions and cancellations to the book for their
// instrument, issues monotonic order ids, and maintains engine-wide
// aggregate counters. It has no required construction parameters.
//
// Lock ordering, narrowest to widest scope: a book's own mutex is always
// acquired and released before the engine touches statsMu; routeMu and
// booksMu are independent of both and never held while calling into a
// book or the trade sink.
type Engine struct {
	nextOrderID atomic.Uint64

	booksMu sync.RWMutex
	books   map[string]*OrderBook

	routeMu sync.Mutex
	routes  map[uint64]routeEntry

	statsMu sync.Mutex
	stats   EngineStats

	sink atomic.Pointer[TradeSink]

	// lifecycleMu makes admission and shutdown mutually exclusive.
	// Submit/Cancel hold the read side for their full duration, including
	// the draining check; Shutdown takes the write side, which only
	// succeeds once every reader holding it at that moment has returned.
	// That ordering, not a separate WaitGroup, is what makes Shutdown's
	// wait-for-in-flight guarantee hold.
	lifecycleMu sync.RWMutex
	draining    bool
}

// NewEngine returns an empty, ready-to-use engine.
func NewEngine() *Engine {
	return &Engine{
		books:  make(map[string]*OrderBook),
		routes: make(map[uint64]routeEntry),
	}
}

// SetTradeSink installs the trade sink, replacing any previously
// registered one. Safe to call concurrently with Submit.
func (e *Engine) SetTradeSink(sink TradeSink) {
	e.sink.Store(&sink)
}

func (e *Engine) currentSink() TradeSink {
	p := e.sink.Load()
	if p == nil {
		return nil
	}
	return *p
}

// bookFor returns the book for instrument, creating it on first use.
func (e *Engine) bookFor(instrument string) *OrderBook {
	e.booksMu.RLock()
	b, ok := e.books[instrument]
	e.booksMu.RUnlock()
	if ok {
		return b
	}

	e.booksMu.Lock()
	defer e.booksMu.Unlock()
	if b, ok = e.books[instrument]; ok {
		return b
	}
	b = NewOrderBook(instrument)
	e.books[instrument] = b
	return b
}

func (e *Engine) lookupBook(instrument string) (*OrderBook, bool) {
	e.booksMu.RLock()
	defer e.booksMu.RUnlock()
	b, ok := e.books[instrument]
	return b, ok
}

// Submit validates and routes a new order. The returned order's Status
// is Rejected if validation failed, in which case no trades were
// generated and no engine-wide counter other than RejectedOrders moved.
// A non-empty error is returned alongside the rejected order for callers
// that prefer the error-handling idiom over inspecting Status.
func (e *Engine) Submit(clientID int64, instrument string, side Side, price decimal.Decimal, quantity int64) (*Order, error) {
	e.lifecycleMu.RLock()
	defer e.lifecycleMu.RUnlock()
	if e.draining {
		return nil, ErrShutdown
	}

	id := e.nextOrderID.Add(1)
	now := time.Now().UTC()

	order := &Order{
		ID:         id,
		ClientID:   clientID,
		Instrument: instrument,
		Side:       side,
		Price:      price,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if price.Sign() <= 0 || quantity <= 0 || instrument == "" {
		order.Reject()
		e.statsMu.Lock()
		e.stats.RejectedOrders++
		e.statsMu.Unlock()
		return order, ErrInvalidParam
	}

	e.routeMu.Lock()
	e.routes[id] = routeEntry{instrument: instrument}
	e.routeMu.Unlock()

	e.statsMu.Lock()
	e.stats.TotalOrders++
	e.stats.ActiveOrders++
	e.statsMu.Unlock()

	book := e.bookFor(instrument)
	results := book.process(order)

	sink := e.currentSink()
	var filledDelta uint64
	for _, r := range results {
		e.dispatchTrade(sink, r.trade)
		if r.makerFilled {
			filledDelta++
		}
	}
	if order.IsFilled() {
		filledDelta++
	}

	e.statsMu.Lock()
	e.stats.TotalTrades += uint64(len(results))
	if filledDelta > e.stats.ActiveOrders {
		e.stats.ActiveOrders = 0
	} else {
		e.stats.ActiveOrders -= filledDelta
	}
	e.statsMu.Unlock()

	return order, nil
}

// dispatchTrade invokes the sink, recovering a panic so one misbehaving
// subscriber cannot corrupt the submission path or stop the remaining
// trades in the batch from being delivered.
func (e *Engine) dispatchTrade(sink TradeSink, trade *Trade) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("trade sink panicked", "recover", r, "trade_id", trade.TradeID, "instrument", trade.Instrument)
		}
	}()
	sink.OnTrade(trade)
}

// Cancel looks up order_id in the routing index and forwards to its
// book. Returns false if the id is unknown or already terminal.
func (e *Engine) Cancel(orderID uint64) bool {
	e.lifecycleMu.RLock()
	defer e.lifecycleMu.RUnlock()
	if e.draining {
		return false
	}

	e.routeMu.Lock()
	route, ok := e.routes[orderID]
	e.routeMu.Unlock()
	if !ok {
		return false
	}

	book, ok := e.lookupBook(route.instrument)
	if !ok {
		// The route index named an instrument with no book: the
		// order-id index and the book set have drifted out of sync.
		// This should never happen since books are never removed once
		// created; log it loudly and treat the cancel as unknown
		// rather than risk acting on inconsistent state.
		logger.Error("invariant breach: routed order has no book",
			"error", ErrInternal, "order_id", orderID, "instrument", route.instrument)
		return false
	}

	if !book.Cancel(orderID) {
		return false
	}

	e.statsMu.Lock()
	e.stats.CancelledOrders++
	if e.stats.ActiveOrders > 0 {
		e.stats.ActiveOrders--
	}
	e.statsMu.Unlock()

	return true
}

// TopBid returns the best resident bid price for instrument, or (0,
// false) for an unknown instrument or an empty bid side.
func (e *Engine) TopBid(instrument string) (decimal.Decimal, bool) {
	b, ok := e.lookupBook(instrument)
	if !ok {
		return decimal.Zero, false
	}
	return b.TopBid()
}

// TopAsk returns the best resident ask price for instrument, or (0,
// false) for an unknown instrument or an empty ask side.
func (e *Engine) TopAsk(instrument string) (decimal.Decimal, bool) {
	b, ok := e.lookupBook(instrument)
	if !ok {
		return decimal.Zero, false
	}
	return b.TopAsk()
}

// Spread returns top_ask - top_bid for instrument, or zero if either
// side is empty or the instrument is unknown.
func (e *Engine) Spread(instrument string) decimal.Decimal {
	b, ok := e.lookupBook(instrument)
	if !ok {
		return decimal.Zero
	}
	return b.Spread()
}

// BidLevels aggregates up to n bid price levels for instrument, or nil
// for an unknown instrument.
func (e *Engine) BidLevels(instrument string, n int) []Level {
	b, ok := e.lookupBook(instrument)
	if !ok {
		return nil
	}
	return b.BidLevels(n)
}

// AskLevels aggregates up to n ask price levels for instrument, or nil
// for an unknown instrument.
func (e *Engine) AskLevels(instrument string, n int) []Level {
	b, ok := e.lookupBook(instrument)
	if !ok {
		return nil
	}
	return b.AskLevels(n)
}

// OpenOrders returns resident order copies for instrument, bids then
// asks, or nil for an unknown instrument.
func (e *Engine) OpenOrders(instrument string) []*Order {
	b, ok := e.lookupBook(instrument)
	if !ok {
		return nil
	}
	return b.OpenOrders()
}

// Stats returns a point-in-time snapshot of engine-wide counters.
func (e *Engine) Stats() EngineStats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// KnownInstruments returns every instrument with a book, in no
// particular order.
func (e *Engine) KnownInstruments() []string {
	e.booksMu.RLock()
	defer e.booksMu.RUnlock()
	out := make([]string, 0, len(e.books))
	for instrument := range e.books {
		out = append(out, instrument)
	}
	return out
}

// Shutdown marks the engine draining, rejecting subsequent Submit/Cancel
// calls, and blocks until every already-in-flight call has returned or
// ctx is cancelled.
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.lifecycleMu.Lock()
		e.draining = true
		e.lifecycleMu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
