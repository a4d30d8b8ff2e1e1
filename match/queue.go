package match

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

// priceKey canonicalizes a price for use as a lookup key independent of
// how the decimal.Decimal value was constructed (shopspring's internal
// representation is not safe to use directly as a map key, since two
// equal values can carry distinct *big.Int pointers).
func priceKey(p decimal.Decimal) string {
	return p.StringFixed(8)
}

// priceLevel is one resting price level: a FIFO (arrival-order) list of
// orders sharing a price, plus the number of orders linked at that
// level. head/tail point into the intrusive Order.next/prev list.
type priceLevel struct {
	price decimal.Decimal
	head  *Order
	tail  *Order
	count int
}

// sideQueue holds one side (bids or asks) of an OrderBook: a skiplist of
// price levels ordered by that side's priority, an order-id index for
// O(1) cancellation lookup, and a string-keyed index from canonical
// price to the skiplist element at that price (see priceKey).
type sideQueue struct {
	side        Side
	levels      *skiplist.SkipList
	levelByKey  map[string]*skiplist.Element
	orders      map[uint64]*Order
	totalOrders int
}

// newBidQueue returns a queue ordered highest price first (best bid).
func newBidQueue() *sideQueue {
	return &sideQueue{
		side: Buy,
		levels: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			l, _ := lhs.(decimal.Decimal)
			r, _ := rhs.(decimal.Decimal)
			switch {
			case l.LessThan(r):
				return 1
			case l.GreaterThan(r):
				return -1
			default:
				return 0
			}
		})),
		levelByKey: make(map[string]*skiplist.Element),
		orders:     make(map[uint64]*Order),
	}
}

// newAskQueue returns a queue ordered lowest price first (best ask).
func newAskQueue() *sideQueue {
	return &sideQueue{
		side: Sell,
		levels: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			l, _ := lhs.(decimal.Decimal)
			r, _ := rhs.(decimal.Decimal)
			switch {
			case l.GreaterThan(r):
				return 1
			case l.LessThan(r):
				return -1
			default:
				return 0
			}
		})),
		levelByKey: make(map[string]*skiplist.Element),
		orders:     make(map[uint64]*Order),
	}
}

// order looks an order up by id, for O(1) cancellation marking.
func (q *sideQueue) order(id uint64) *Order {
	return q.orders[id]
}

// insert appends order to the tail of its price level, creating the
// level if it does not exist yet. Appending to the tail preserves
// strict price-time priority: order ids only ever increase, so later
// arrivals always land after earlier ones at the same price.
func (q *sideQueue) insert(order *Order) {
	key := priceKey(order.Price)

	el, ok := q.levelByKey[key]
	var lvl *priceLevel
	if ok {
		lvl, _ = el.Value.(*priceLevel)
	} else {
		lvl = &priceLevel{price: order.Price}
		el = q.levels.Set(order.Price, lvl)
		q.levelByKey[key] = el
	}

	order.prev = lvl.tail
	order.next = nil
	if lvl.tail != nil {
		lvl.tail.next = order
	} else {
		lvl.head = order
	}
	lvl.tail = order

	lvl.count++

	q.orders[order.ID] = order
	q.totalOrders++
}

// unlink removes order from its price level's linked list and, if the
// level becomes empty, removes the level from the skiplist. Does not
// touch the order-id index; callers that drop an order from the book
// entirely must also delete it from q.orders.
func (q *sideQueue) unlink(order *Order) {
	key := priceKey(order.Price)
	el, ok := q.levelByKey[key]
	if !ok {
		return
	}
	lvl, _ := el.Value.(*priceLevel)

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		lvl.head = order.next
	}
	if order.next != nil {
		order.next.prev = order.prev
	} else {
		lvl.tail = order.prev
	}
	order.next = nil
	order.prev = nil

	lvl.count--

	if lvl.count == 0 {
		q.levels.RemoveElement(el)
		delete(q.levelByKey, key)
	}
}

// remove physically removes order from the queue: unlinks it from its
// price level and drops it from the order-id index. Used by the matching
// loop's lazy-reclamation discard, by reclaimHead and by popHead.
func (q *sideQueue) remove(order *Order) {
	q.unlink(order)
	delete(q.orders, order.ID)
	q.totalOrders--
}

// peekHead returns the order at the front of the best price level
// without removing it, or nil if the side is empty.
func (q *sideQueue) peekHead() *Order {
	el := q.levels.Front()
	if el == nil {
		return nil
	}
	lvl, _ := el.Value.(*priceLevel)
	return lvl.head
}

// popHead removes and returns the order at the front of the best price
// level, or nil if the side is empty.
func (q *sideQueue) popHead() *Order {
	order := q.peekHead()
	if order != nil {
		q.remove(order)
	}
	return order
}

// orderCount returns the number of resident (not yet physically
// reclaimed) orders in the queue.
func (q *sideQueue) orderCount() int {
	return q.totalOrders
}

// levelCount returns the number of distinct price levels.
func (q *sideQueue) levelCount() int {
	return q.levels.Len()
}

// bestPrice performs a read-only walk from the front, skipping
// cancelled/filled entries without mutating the queue, and returns the
// first live price.
func (q *sideQueue) bestPrice() (decimal.Decimal, bool) {
	el := q.levels.Front()
	for el != nil {
		lvl, _ := el.Value.(*priceLevel)
		for o := lvl.head; o != nil; o = o.next {
			if o.Status != StatusCancelled && !o.IsFilled() {
				return lvl.price, true
			}
		}
		el = el.Next()
	}
	return decimal.Zero, false
}

// Level is one aggregated price level: the price, the summed remaining
// quantity of live (non-cancelled, non-filled) resident orders, and how
// many of them there are.
type Level struct {
	Price    decimal.Decimal
	Quantity int64
	Orders   int
}

// topLevels aggregates up to maxN distinct, live price levels from best
// to worst, in a read-only walk.
func (q *sideQueue) topLevels(maxN int) []Level {
	result := make([]Level, 0, maxN)
	el := q.levels.Front()
	for el != nil && len(result) < maxN {
		lvl, _ := el.Value.(*priceLevel)
		var qty int64
		var count int
		for o := lvl.head; o != nil; o = o.next {
			if o.Status == StatusCancelled || o.IsFilled() {
				continue
			}
			qty += o.Remaining()
			count++
		}
		if count > 0 {
			result = append(result, Level{Price: lvl.price, Quantity: qty, Orders: count})
		}
		el = el.Next()
	}
	return result
}

// totalVolume sums the remaining quantity of every live resident order,
// a read-only walk across all levels.
func (q *sideQueue) totalVolume() int64 {
	var total int64
	el := q.levels.Front()
	for el != nil {
		lvl, _ := el.Value.(*priceLevel)
		for o := lvl.head; o != nil; o = o.next {
			if o.Status == StatusCancelled || o.IsFilled() {
				continue
			}
			total += o.Remaining()
		}
		el = el.Next()
	}
	return total
}

// snapshotOrders returns copies of every resident order, best price
// first and arrival order within a level, for read-only listing.
func (q *sideQueue) snapshotOrders() []*Order {
	out := make([]*Order, 0, q.totalOrders)
	el := q.levels.Front()
	for el != nil {
		lvl, _ := el.Value.(*priceLevel)
		for o := lvl.head; o != nil; o = o.next {
			out = append(out, o.Snapshot())
		}
		el = el.Next()
	}
	return out
}

// reclaimHead drops cancelled or filled orders sitting at the head of
// the best price level, repeatedly, until a live order surfaces or the
// side empties.
func (q *sideQueue) reclaimHead() {
	for {
		o := q.peekHead()
		if o == nil || (o.Status != StatusCancelled && !o.IsFilled()) {
			return
		}
		q.remove(o)
	}
}
