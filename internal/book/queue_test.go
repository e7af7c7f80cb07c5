package book

import (
	"testing"

	"garm/internal/common"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nextTestID uint64

func testOrder(side common.Side, price int64, qty uint64) *common.Order {
	nextTestID++
	return &common.Order{
		ID:            nextTestID,
		Side:          side,
		OrderType:     common.LimitOrder,
		Ticker:        "AAPL",
		LimitPrice:    decimal.NewFromInt(price),
		Quantity:      qty,
		TotalQuantity: qty,
		Owner:         "test",
	}
}

func TestSideQueue_PricePriority_Bids(t *testing.T) {
	q := NewSideQueue(common.Buy)

	q.Insert(testOrder(common.Buy, 99, 10))
	q.Insert(testOrder(common.Buy, 101, 20))
	q.Insert(testOrder(common.Buy, 100, 30))

	// Highest bid first.
	best, ok := q.PeekBest()
	require.True(t, ok)
	assert.True(t, best.LimitPrice.Equal(decimal.NewFromInt(101)))

	q.PopBest()
	best, ok = q.PeekBest()
	require.True(t, ok)
	assert.True(t, best.LimitPrice.Equal(decimal.NewFromInt(100)))
}

func TestSideQueue_PricePriority_Asks(t *testing.T) {
	q := NewSideQueue(common.Sell)

	q.Insert(testOrder(common.Sell, 102, 10))
	q.Insert(testOrder(common.Sell, 100, 20))
	q.Insert(testOrder(common.Sell, 101, 30))

	// Lowest ask first.
	best, ok := q.PeekBest()
	require.True(t, ok)
	assert.True(t, best.LimitPrice.Equal(decimal.NewFromInt(100)))
}

func TestSideQueue_TimePriorityAtEqualPrice(t *testing.T) {
	q := NewSideQueue(common.Buy)

	first := testOrder(common.Buy, 100, 10)
	second := testOrder(common.Buy, 100, 20)
	q.Insert(first)
	q.Insert(second)

	best, ok := q.PopBest()
	require.True(t, ok)
	assert.Equal(t, first.ID, best.ID)

	best, ok = q.PopBest()
	require.True(t, ok)
	assert.Equal(t, second.ID, best.ID)

	_, ok = q.PopBest()
	assert.False(t, ok)
}

func TestSideQueue_Remove(t *testing.T) {
	q := NewSideQueue(common.Sell)

	first := testOrder(common.Sell, 100, 10)
	second := testOrder(common.Sell, 100, 20)
	third := testOrder(common.Sell, 101, 30)
	q.Insert(first)
	q.Insert(second)
	q.Insert(third)

	// Removing from the middle of a level keeps the rest in place.
	removed, ok := q.Remove(first.ID)
	require.True(t, ok)
	assert.Equal(t, first.ID, removed.ID)

	best, ok := q.PeekBest()
	require.True(t, ok)
	assert.Equal(t, second.ID, best.ID)

	// Removing the last order at a price drops the whole level.
	_, ok = q.Remove(second.ID)
	require.True(t, ok)
	best, ok = q.PeekBest()
	require.True(t, ok)
	assert.Equal(t, third.ID, best.ID)

	// Unknown orders are reported as such.
	_, ok = q.Remove(99999)
	assert.False(t, ok)
}

func TestSideQueue_Bookkeeping(t *testing.T) {
	q := NewSideQueue(common.Buy)
	assert.True(t, q.Empty())

	q.Insert(testOrder(common.Buy, 100, 10))
	q.Insert(testOrder(common.Buy, 101, 5))
	assert.False(t, q.Empty())
	assert.Equal(t, uint64(2), q.Orders())
	assert.Equal(t, uint64(15), q.Liquidity())

	q.Consume(3)
	assert.Equal(t, uint64(12), q.Liquidity())

	q.PopBest()
	assert.Equal(t, uint64(1), q.Orders())
}

func TestSideQueue_FlattenIsDetached(t *testing.T) {
	q := NewSideQueue(common.Buy)
	order := testOrder(common.Buy, 100, 10)
	q.Insert(order)

	flat := q.Flatten()
	require.Len(t, flat, 1)
	require.Len(t, flat[0].Orders, 1)

	// Mutating the snapshot must not touch the resting order.
	flat[0].Orders[0].Quantity = 0
	assert.Equal(t, uint64(10), order.Quantity)
}

func TestSideQueue_FlattenOrder(t *testing.T) {
	q := NewSideQueue(common.Sell)
	q.Insert(testOrder(common.Sell, 102, 10))
	q.Insert(testOrder(common.Sell, 100, 10))
	q.Insert(testOrder(common.Sell, 100, 5))

	flat := q.Flatten()
	require.Len(t, flat, 2)
	assert.True(t, flat[0].Price.Equal(decimal.NewFromInt(100)), "Asks should be sorted Low -> High")
	assert.Len(t, flat[0].Orders, 2)
	assert.True(t, flat[1].Price.Equal(decimal.NewFromInt(102)))
}
