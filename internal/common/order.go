package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            uint64          // Engine-assigned monotonic identifier
	OrderType     OrderType       //
	Ticker        string          // Specific instrument identifier
	Side          Side            // Order side
	LimitPrice    decimal.Decimal // Limiting price (ignored for market orders)
	Quantity      uint64          // Remaining quantity
	TotalQuantity uint64          // Total volume requested
	Timestamp     time.Time       // Time of acceptance into the book
	Owner         string          // Who owns this order
}

// Filled reports whether the order has no quantity left to match.
func (order *Order) Filled() bool {
	return order.Quantity == 0
}

func (order Order) String() string {
	return fmt.Sprintf(
		`ID:         %d
OrderType:  %v
Ticker:     %s
Side:       %v
LimitPrice: %s
Quantity:   %d (Total: %d)
Timestamp:  %v
Owner:      %s`,
		order.ID,
		order.OrderType,
		order.Ticker,
		order.Side,
		order.LimitPrice.String(),
		order.Quantity,
		order.TotalQuantity,
		order.Timestamp.Format(time.RFC3339),
		order.Owner,
	)
}
