// Package aggregate maintains a downstream, read-only mirror of engine
// book depth, for services that should see price-level state without
// talking to the matching engine directly (a dashboard, a risk check, a
// market-data fan-out tier). It reconciles from periodic
// match.OrderBook.BidLevels/AskLevels snapshots rather than replaying an
// incremental event log, since trades are the only ordered event stream
// available.
package aggregate

import (
	"sync"

	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"

	"github.com/quasar-exchange/matching-engine/match"
)

// Book is a single instrument's aggregated depth mirror: a treemap per
// side from price to resident quantity. Reconciled wholesale on each
// ApplyLevels call rather than incrementally, so a missed or
// out-of-order update can never leave it in a torn state.
type Book struct {
	mu    sync.RWMutex
	seqID uint64
	bids  *treemap.TreeMap[decimal.Decimal, int64]
	asks  *treemap.TreeMap[decimal.Decimal, int64]
}

func newBook() *Book {
	return &Book{
		bids: treemap.NewWithKeyCompare[decimal.Decimal, int64](func(a, b decimal.Decimal) bool {
			return a.GreaterThan(b)
		}),
		asks: treemap.NewWithKeyCompare[decimal.Decimal, int64](func(a, b decimal.Decimal) bool {
			return a.LessThan(b)
		}),
	}
}

// SequenceID returns the sequence number of the last applied snapshot.
func (b *Book) SequenceID() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seqID
}

// ApplyLevels replaces one side's mirrored depth wholesale from a fresh
// match.Level snapshot. seqID must be at least the last applied value
// for that reconciliation to take effect (a single Reconcile call
// applies the same seqID to both sides); a seqID older than the last
// applied one is silently dropped.
func (b *Book) ApplyLevels(side match.Side, seqID uint64, levels []match.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seqID < b.seqID {
		return
	}
	b.seqID = seqID

	tm := b.bids
	if side == match.Sell {
		tm = b.asks
	}

	tm.Clear()
	for _, lvl := range levels {
		tm.Set(lvl.Price, lvl.Quantity)
	}
}

// Depth returns the mirrored resident quantity at price on the given
// side, or zero if the level is not present.
func (b *Book) Depth(side match.Side, price decimal.Decimal) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tm := b.bids
	if side == match.Sell {
		tm = b.asks
	}
	qty, ok := tm.Get(price)
	if !ok {
		return 0
	}
	return qty
}

// Top returns the best mirrored price on the given side.
func (b *Book) Top(side match.Side) (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	tm := b.bids
	if side == match.Sell {
		tm = b.asks
	}
	if tm.Len() == 0 {
		return decimal.Zero, false
	}
	it := tm.Iterator()
	return it.Key(), true
}

// Mirror registers one Book per instrument. It holds no engine reference
// and does no polling itself; callers own the poll loop over an engine's
// Levels queries and feed levels in via Reconcile.
type Mirror struct {
	mu    sync.RWMutex
	books map[string]*Book
}

// NewMirror returns an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{books: make(map[string]*Book)}
}

func (m *Mirror) bookFor(instrument string) *Book {
	m.mu.RLock()
	b, ok := m.books[instrument]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok = m.books[instrument]; ok {
		return b
	}
	b = newBook()
	m.books[instrument] = b
	return b
}

// Reconcile applies one instrument's bid and ask level snapshots under a
// shared sequence number.
func (m *Mirror) Reconcile(instrument string, seqID uint64, bids, asks []match.Level) {
	b := m.bookFor(instrument)
	b.ApplyLevels(match.Buy, seqID, bids)
	b.ApplyLevels(match.Sell, seqID, asks)
}

// Book returns the mirrored book for instrument, or nil if none has
// been reconciled yet.
func (m *Mirror) Book(instrument string) *Book {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.books[instrument]
}
