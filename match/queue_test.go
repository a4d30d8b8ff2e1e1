package match

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestOrder(id uint64, side Side, price int64, qty int64) *Order {
	return &Order{
		ID:       id,
		Side:     side,
		Price:    decimal.NewFromInt(price),
		Quantity: qty,
	}
}

func TestSideQueue_InsertOrdersByPriceThenArrival(t *testing.T) {
	q := newBidQueue()

	q.insert(newTestOrder(1, Buy, 100, 5))
	q.insert(newTestOrder(2, Buy, 102, 5))
	q.insert(newTestOrder(3, Buy, 101, 5))
	q.insert(newTestOrder(4, Buy, 102, 5))

	assert.Equal(t, 4, q.orderCount())
	assert.Equal(t, 3, q.levelCount())

	head := q.peekHead()
	assert.Equal(t, uint64(2), head.ID, "best bid price should surface first")

	snap := q.snapshotOrders()
	assert.Equal(t, []uint64{2, 4, 3, 1}, ids(snap))
}

func TestSideQueue_AskOrdersLowestFirst(t *testing.T) {
	q := newAskQueue()

	q.insert(newTestOrder(1, Sell, 101, 5))
	q.insert(newTestOrder(2, Sell, 100, 5))

	head := q.peekHead()
	assert.Equal(t, uint64(2), head.ID)
}

func TestSideQueue_BestPriceSkipsStaleHeads(t *testing.T) {
	q := newBidQueue()
	o1 := newTestOrder(1, Buy, 102, 5)
	o2 := newTestOrder(2, Buy, 101, 5)
	q.insert(o1)
	q.insert(o2)

	o1.Cancel()

	price, ok := q.bestPrice()
	assert.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(101)))

	// the queue itself is untouched by the read-only walk
	assert.Equal(t, 2, q.orderCount())
}

func TestSideQueue_ReclaimHeadDropsStaleTops(t *testing.T) {
	q := newBidQueue()
	o1 := newTestOrder(1, Buy, 102, 5)
	o2 := newTestOrder(2, Buy, 101, 5)
	q.insert(o1)
	q.insert(o2)
	o1.Cancel()

	q.reclaimHead()

	assert.Equal(t, 1, q.orderCount())
	assert.Equal(t, o2, q.peekHead())
}

func TestSideQueue_RemoveEmptiesLevel(t *testing.T) {
	q := newBidQueue()
	o := newTestOrder(1, Buy, 100, 5)
	q.insert(o)

	q.remove(o)

	assert.Equal(t, 0, q.orderCount())
	assert.Equal(t, 0, q.levelCount())
	assert.Nil(t, q.order(1))
}

func ids(orders []*Order) []uint64 {
	out := make([]uint64, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}
