package common

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

type OrderType int

const (
	// Limit orders are an order to buy or sell at a specified price or
	// better. Limit orders may rest on the order book until filled.
	LimitOrder OrderType = iota
	// Market orders are instructions to buy or sell immediately against
	// whatever liquidity is resting. They never rest on the book and the
	// execution price is whatever the resting side committed to.
	MarketOrder
)

func (t OrderType) String() string {
	switch t {
	case LimitOrder:
		return "limit"
	case MarketOrder:
		return "market"
	}
	return "unknown"
}
