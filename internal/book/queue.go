package book

import (
	"garm/internal/common"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// PriceLevel holds the resting orders at a single price, sorted by time
// added as they will be push-back'd.
type PriceLevel struct {
	price  decimal.Decimal
	orders []*common.Order
}

type priceLevels = btree.BTreeG[*PriceLevel]

// SideQueue keeps one side of a book in price-time priority. The level
// comparator is chosen so the best level is always the tree minimum,
// for bids and asks alike.
type SideQueue struct {
	side   common.Side
	levels *priceLevels
	byID   map[uint64]*PriceLevel

	// Some book keeping
	nOrders   uint64 // Track the number of resting orders on this side.
	liquidity uint64 // Track the total remaining quantity on this side.
}

func NewSideQueue(side common.Side) *SideQueue {
	var levels *priceLevels
	switch side {
	case common.Buy:
		// Sorted greatest first.
		levels = btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.price.GreaterThan(b.price)
		})
	case common.Sell:
		// Sorted least first.
		levels = btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.price.LessThan(b.price)
		})
	}
	return &SideQueue{
		side:   side,
		levels: levels,
		byID:   make(map[uint64]*PriceLevel),
	}
}

// Insert adds a resting order behind any earlier arrivals at the same
// price. Orders are expected to carry a unique, monotonically assigned ID;
// that assignment is what makes FIFO order within a level equivalent to
// arrival order.
func (q *SideQueue) Insert(order *common.Order) {
	// Levels comparator only accounts for price, so a dummy level works
	// as the search probe.
	level, ok := q.levels.GetMut(&PriceLevel{price: order.LimitPrice})
	if !ok {
		level = &PriceLevel{price: order.LimitPrice}
		q.levels.Set(level)
	}
	level.orders = append(level.orders, order)
	q.byID[order.ID] = level
	q.nOrders++
	q.liquidity += order.Quantity
}

// PeekBest returns the order at the front of the best price level without
// removing it.
func (q *SideQueue) PeekBest() (*common.Order, bool) {
	level, ok := q.levels.MinMut()
	if !ok {
		return nil, false
	}
	return level.orders[0], true
}

// PopBest removes and returns the order at the front of the best price
// level, dropping the level once it empties.
func (q *SideQueue) PopBest() (*common.Order, bool) {
	level, ok := q.levels.MinMut()
	if !ok {
		return nil, false
	}
	order := level.orders[0]
	level.orders = level.orders[1:]
	if len(level.orders) == 0 {
		q.levels.Delete(level)
	}
	delete(q.byID, order.ID)
	q.nOrders--
	q.liquidity -= order.Quantity
	return order, true
}

// Remove takes an order out of the queue regardless of its position,
// preserving the relative order of everything else at its level. Returns
// false if the order is not resting on this side.
func (q *SideQueue) Remove(id uint64) (*common.Order, bool) {
	level, ok := q.byID[id]
	if !ok {
		return nil, false
	}

	var removed *common.Order
	for i, order := range level.orders {
		if order.ID == id {
			removed = order
			level.orders = append(level.orders[:i], level.orders[i+1:]...)
			break
		}
	}
	if len(level.orders) == 0 {
		q.levels.Delete(level)
	}
	delete(q.byID, id)
	q.nOrders--
	q.liquidity -= removed.Quantity
	return removed, true
}

// Consume records a fill against the front order. The order itself is
// mutated by the matching loop; this keeps the side's liquidity counter in
// step.
func (q *SideQueue) Consume(quantity uint64) {
	q.liquidity -= quantity
}

func (q *SideQueue) Empty() bool {
	return q.levels.Len() == 0
}

// Orders returns the number of resting orders on this side.
func (q *SideQueue) Orders() uint64 {
	return q.nOrders
}

// Liquidity returns the total remaining quantity resting on this side.
func (q *SideQueue) Liquidity() uint64 {
	return q.liquidity
}
