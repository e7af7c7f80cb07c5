package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the immutable record of a single execution. Seq defines the
// total order of executions across the whole engine and never changes
// once assigned.
type Trade struct {
	Seq         uint64          `json:"seq"`
	Ticker      string          `json:"ticker"`
	BuyOrderID  uint64          `json:"buy_order_id"`
	SellOrderID uint64          `json:"sell_order_id"`
	Buyer       string          `json:"buyer"`
	Seller      string          `json:"seller"`
	Quantity    uint64          `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TakerSide   Side            `json:"taker_side"`
	Timestamp   time.Time       `json:"timestamp"`
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`Seq:       %d
Ticker:    %s
Buy:       %d (%s)
Sell:      %d (%s)
Quantity:  %d
Price:     %s
TakerSide: %v
Timestamp: %v`,
		t.Seq,
		t.Ticker,
		t.BuyOrderID, t.Buyer,
		t.SellOrderID, t.Seller,
		t.Quantity,
		t.Price.String(),
		t.TakerSide,
		t.Timestamp.Format(time.RFC3339),
	)
}
