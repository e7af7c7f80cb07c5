package engine

import (
	"sync"
	"time"

	"garm/internal/book"
	"garm/internal/common"
)

// OrderBook serializes all commands for one instrument behind a mutex.
// Nothing inside the critical section blocks on I/O: the trade log append
// is in-memory and reporters hand off to their own workers.
type OrderBook struct {
	engine *Engine
	ticker string

	mu   sync.Mutex
	bids *book.SideQueue
	asks *book.SideQueue
}

func newOrderBook(engine *Engine, ticker string) *OrderBook {
	return &OrderBook{
		engine: engine,
		ticker: ticker,
		bids:   book.NewSideQueue(common.Buy),
		asks:   book.NewSideQueue(common.Sell),
	}
}

// place assigns the arrival identifier and dispatches on order type. The
// identifier is taken under the lock so that identifier order equals
// processing order for this instrument; it doubles as the time-priority
// tiebreak.
func (b *OrderBook) place(order common.Order) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order.ID = b.engine.nextID.Add(1)
	order.Timestamp = time.Now()

	switch order.OrderType {
	case common.MarketOrder:
		if err := b.sweep(&order); err != nil {
			return 0, err
		}
	default:
		b.rest(&order)
	}
	return order.ID, nil
}

// rest enqueues a limit order and runs the crossing loop: while the best
// bid and best ask cross, fills print at the resting order's price.
//
// The book was uncrossed before this order arrived, so every fill involves
// the new order; once the tops no longer cross (or a side empties) the
// book is stable again and the loop ends.
func (b *OrderBook) rest(order *common.Order) {
	if order.Side == common.Buy {
		b.bids.Insert(order)
	} else {
		b.asks.Insert(order)
	}

	for {
		bid, bidOk := b.bids.PeekBest()
		ask, askOk := b.asks.PeekBest()

		// If either side is empty, or prices don't cross, we are done.
		if !bidOk || !askOk || bid.LimitPrice.LessThan(ask.LimitPrice) {
			return
		}

		b.fill(bid, ask)
	}
}

// fill executes one match between the current tops of book. Whichever
// order was received first is the maker and sets the execution price; the
// later order took that price.
func (b *OrderBook) fill(bid, ask *common.Order) {
	quantity := min(bid.Quantity, ask.Quantity)

	price := bid.LimitPrice
	taker := common.Sell
	if bid.ID > ask.ID {
		price = ask.LimitPrice
		taker = common.Buy
	}

	bid.Quantity -= quantity
	ask.Quantity -= quantity
	b.bids.Consume(quantity)
	b.asks.Consume(quantity)

	// Partially filled orders stay put at the front of their level, so
	// they keep their original time priority over later arrivals.
	if bid.Filled() {
		b.bids.PopBest()
	}
	if ask.Filled() {
		b.asks.PopBest()
	}

	b.engine.execute(b.ticker, bid, ask, quantity, price, taker)
}

// sweep handles a market order: consume the opposite side best-first until
// the requested volume is filled. Market orders never rest, so a book that
// cannot cover the full quantity rejects the order up front, leaving the
// queues untouched.
func (b *OrderBook) sweep(order *common.Order) error {
	opposite := b.asks
	if order.Side == common.Sell {
		opposite = b.bids
	}

	if opposite.Liquidity() < order.TotalQuantity {
		return ErrNotEnoughLiquidity
	}

	for order.Quantity > 0 {
		resting, ok := opposite.PeekBest()
		if !ok {
			// Unreachable: liquidity was checked before the sweep began.
			return ErrNotEnoughLiquidity
		}

		quantity := min(order.Quantity, resting.Quantity)
		order.Quantity -= quantity
		resting.Quantity -= quantity
		opposite.Consume(quantity)
		if resting.Filled() {
			opposite.PopBest()
		}

		if order.Side == common.Buy {
			b.engine.execute(b.ticker, order, resting, quantity, resting.LimitPrice, common.Buy)
		} else {
			b.engine.execute(b.ticker, resting, order, quantity, resting.LimitPrice, common.Sell)
		}
	}
	return nil
}

// cancel removes a resting order from whichever side holds it.
func (b *OrderBook) cancel(id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.bids.Remove(id); ok {
		return nil
	}
	if _, ok := b.asks.Remove(id); ok {
		return nil
	}
	return ErrOrderNotFound
}

func (b *OrderBook) snapshot() ([]book.FlatPriceLevel, []book.FlatPriceLevel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.Flatten(), b.asks.Flatten()
}
