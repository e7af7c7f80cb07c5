package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"garm/internal/book"
	"garm/internal/common"
	"garm/internal/tradelog"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Reporter receives every executed trade. Implementations must not block:
// they are invoked while the instrument's book is locked.
type Reporter interface {
	ReportTrade(trade common.Trade)
}

// Engine owns one OrderBook per configured instrument. Books are fully
// independent and match concurrently; within one book submissions are
// strictly serialized.
type Engine struct {
	books     map[string]*OrderBook
	log       *tradelog.Log
	reporters []Reporter

	nextID atomic.Uint64
	closed atomic.Bool
}

func New(tradeLog *tradelog.Log, tickers ...string) *Engine {
	engine := &Engine{
		books: make(map[string]*OrderBook),
		log:   tradeLog,
	}
	for _, ticker := range tickers {
		engine.books[ticker] = newOrderBook(engine, ticker)
	}
	return engine
}

// AddReporter registers a trade consumer. Not safe to call once orders are
// flowing; wire reporters up before serving.
func (engine *Engine) AddReporter(r Reporter) {
	engine.reporters = append(engine.reporters, r)
}

// SubmitOrder validates the submission, assigns it an identifier and runs
// it through its instrument's book. The assigned identifier is returned;
// resulting trades, if any, are in the log and reported before this
// returns. A rejected submission leaves both queues exactly as they were.
func (engine *Engine) SubmitOrder(order common.Order) (uint64, error) {
	if engine.closed.Load() {
		return 0, ErrEngineClosed
	}
	if order.Quantity == 0 {
		return 0, fmt.Errorf("%w: non-positive quantity", ErrInvalidOrder)
	}
	if order.OrderType == common.LimitOrder && !order.LimitPrice.IsPositive() {
		return 0, fmt.Errorf("%w: non-positive limit price", ErrInvalidOrder)
	}
	orderBook, ok := engine.books[order.Ticker]
	if !ok {
		return 0, ErrUnknownInstrument
	}

	order.TotalQuantity = order.Quantity
	return orderBook.place(order)
}

// CancelOrder removes a resting order from its book.
func (engine *Engine) CancelOrder(ticker string, id uint64) error {
	if engine.closed.Load() {
		return ErrEngineClosed
	}
	orderBook, ok := engine.books[ticker]
	if !ok {
		return ErrOrderNotFound
	}
	return orderBook.cancel(id)
}

// BookSnapshot returns detached best-first views of both sides.
func (engine *Engine) BookSnapshot(ticker string) ([]book.FlatPriceLevel, []book.FlatPriceLevel, error) {
	orderBook, ok := engine.books[ticker]
	if !ok {
		return nil, nil, ErrUnknownInstrument
	}
	bids, asks := orderBook.snapshot()
	return bids, asks, nil
}

// Trades returns a copy of the full execution history.
func (engine *Engine) Trades() []common.Trade {
	return engine.log.Trades()
}

// Trade looks one execution up by sequence number.
func (engine *Engine) Trade(seq uint64) (common.Trade, bool) {
	return engine.log.Get(seq)
}

// Close stops accepting commands. In-flight submissions run to completion.
func (engine *Engine) Close() {
	engine.closed.Store(true)
}

// execute books a fill: decrements are already done by the caller, this
// stamps and logs the trade and fans it out to reporters.
func (engine *Engine) execute(
	ticker string,
	bid, ask *common.Order,
	quantity uint64,
	price decimal.Decimal,
	taker common.Side,
) common.Trade {
	trade := engine.log.Append(common.Trade{
		Ticker:      ticker,
		BuyOrderID:  bid.ID,
		SellOrderID: ask.ID,
		Buyer:       bid.Owner,
		Seller:      ask.Owner,
		Quantity:    quantity,
		Price:       price,
		TakerSide:   taker,
		Timestamp:   time.Now(),
	})

	log.Debug().
		Uint64("seq", trade.Seq).
		Str("ticker", ticker).
		Uint64("qty", quantity).
		Str("price", price.String()).
		Msg("trade executed")

	for _, r := range engine.reporters {
		r.ReportTrade(trade)
	}
	return trade
}
