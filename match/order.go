package match

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is one of Buy or Sell.
type Side int8

const (
	Buy  Side = 1
	Sell Side = 2
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// OrderStatus is the order's position in its state machine.
// NEW -> {PARTIALLY_FILLED, FILLED, CANCELLED, REJECTED}
// PARTIALLY_FILLED -> {PARTIALLY_FILLED, FILLED, CANCELLED}
// FILLED, CANCELLED, REJECTED are terminal.
type OrderStatus int8

const (
	StatusNew OrderStatus = iota
	StatusPartiallyFilled
	StatusFilled
	StatusCancelled
	StatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusPartiallyFilled:
		return "partially_filled"
	case StatusFilled:
		return "filled"
	case StatusCancelled:
		return "cancelled"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// Order is a limit order resident in, or rejected by, the engine.
//
// The book owns every Order it holds; callers receive Order values or
// pointers to inspect, never to mutate directly (fill/cancel/reject are
// the only mutators; fill and cancel are only called from inside a
// book's critical section, and reject only by the engine on an order
// that never reached a book).
type Order struct {
	ID             uint64
	ClientID       int64
	Instrument     string
	Side           Side
	Price          decimal.Decimal
	Quantity       int64
	FilledQuantity int64
	Status         OrderStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Intrusive doubly linked list pointers, used by the book's
	// per-price-level FIFO queue. Not part of the order's public value.
	next *Order
	prev *Order
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.Quantity - o.FilledQuantity
}

// IsFilled reports whether the order has no remaining quantity left to fill.
func (o *Order) IsFilled() bool {
	return o.Status == StatusFilled
}

// Fill applies a match of the given quantity, clamped to the order's
// remaining size. Transitions status to Filled or PartiallyFilled. A
// no-op on an already-terminal order.
func (o *Order) Fill(qty int64) {
	if o.Status.IsTerminal() {
		return
	}

	if qty > o.Remaining() {
		qty = o.Remaining()
	}
	if qty <= 0 {
		return
	}

	o.FilledQuantity += qty
	if o.Remaining() == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
	o.UpdatedAt = time.Now().UTC()
}

// Cancel transitions the order to Cancelled. Idempotent: a second call on
// an already-terminal order is a no-op.
func (o *Order) Cancel() {
	if o.Status.IsTerminal() {
		return
	}
	o.Status = StatusCancelled
	o.UpdatedAt = time.Now().UTC()
}

// Reject transitions the order to Rejected. Idempotent like Cancel.
func (o *Order) Reject() {
	if o.Status.IsTerminal() {
		return
	}
	o.Status = StatusRejected
	o.UpdatedAt = time.Now().UTC()
}

// Snapshot returns a copy of the order with list pointers stripped, safe
// to hand to a caller outside the book's critical section.
func (o *Order) Snapshot() *Order {
	cpy := *o
	cpy.next = nil
	cpy.prev = nil
	return &cpy
}
