package book

import (
	"garm/internal/common"

	"github.com/shopspring/decimal"
)

// FlatPriceLevel is a detached copy of one price level, best levels first
// in the slices returned by Flatten. Mutating it has no effect on the
// queue it came from.
type FlatPriceLevel struct {
	Price  decimal.Decimal
	Orders []common.Order
}

// Flatten walks the side best-first and copies every level out.
func (q *SideQueue) Flatten() []FlatPriceLevel {
	flat := make([]FlatPriceLevel, 0, q.levels.Len())
	q.levels.Scan(func(level *PriceLevel) bool {
		orders := make([]common.Order, len(level.orders))
		for i, order := range level.orders {
			orders[i] = *order
		}
		flat = append(flat, FlatPriceLevel{
			Price:  level.price,
			Orders: orders,
		})
		return true
	})
	return flat
}
