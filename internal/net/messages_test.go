package net

import (
	"testing"

	"garm/internal/common"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderMessage_RoundTrip(t *testing.T) {
	sent := NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		OrderType:   common.LimitOrder,
		Side:        common.Sell,
		Ticker:      "TSLA",
		Quantity:    42,
		Price:       "101.25",
		Owner:       "harshit",
	}

	parsed, err := parseMessage(sent.Serialize())
	require.NoError(t, err)
	assert.Equal(t, sent, parsed)

	newOrder := parsed.(NewOrderMessage)
	order, err := newOrder.Order()
	require.NoError(t, err)
	assert.Equal(t, "TSLA", order.Ticker)
	assert.Equal(t, uint64(42), order.Quantity)
	assert.True(t, order.LimitPrice.Equal(decimal.RequireFromString("101.25")))
}

func TestNewOrderMessage_ShortTicker(t *testing.T) {
	// Tickers shorter than the 4-byte slot come back without padding.
	sent := NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		OrderType:   common.LimitOrder,
		Side:        common.Buy,
		Ticker:      "GE",
		Quantity:    1,
		Price:       "10",
		Owner:       "a",
	}
	parsed, err := parseMessage(sent.Serialize())
	require.NoError(t, err)
	assert.Equal(t, "GE", parsed.(NewOrderMessage).Ticker)
}

func TestNewOrderMessage_BadPrice(t *testing.T) {
	m := NewOrderMessage{
		OrderType: common.LimitOrder,
		Price:     "not-a-price",
	}
	_, err := m.Order()
	assert.ErrorIs(t, err, ErrInvalidPrice)

	// Market orders carry no meaningful price; the field is ignored.
	m.OrderType = common.MarketOrder
	_, err = m.Order()
	assert.NoError(t, err)
}

func TestCancelOrderMessage_RoundTrip(t *testing.T) {
	sent := CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		Ticker:      "AAPL",
		OrderID:     7,
	}
	parsed, err := parseMessage(sent.Serialize())
	require.NoError(t, err)
	assert.Equal(t, sent, parsed)
}

func TestQueryMessages_RoundTrip(t *testing.T) {
	book, err := parseMessage(BookQueryMessage{
		BaseMessage: BaseMessage{TypeOf: BookQuery},
		Ticker:      "AAPL",
	}.Serialize())
	require.NoError(t, err)
	assert.Equal(t, "AAPL", book.(BookQueryMessage).Ticker)

	tl, err := parseMessage(TradeLogQueryMessage{
		BaseMessage: BaseMessage{TypeOf: TradeLogQuery},
		From:        9,
	}.Serialize())
	require.NoError(t, err)
	assert.Equal(t, uint64(9), tl.(TradeLogQueryMessage).From)
}

func TestParseMessage_Errors(t *testing.T) {
	_, err := parseMessage([]byte{0x01})
	assert.ErrorIs(t, err, ErrMessageTooShort)

	_, err = parseMessage([]byte{0x00, 0x63})
	assert.ErrorIs(t, err, ErrInvalidMessageType)

	// Truncated NewOrder body.
	full := NewOrderMessage{
		BaseMessage: BaseMessage{TypeOf: NewOrder},
		OrderType:   common.LimitOrder,
		Side:        common.Buy,
		Ticker:      "AAPL",
		Quantity:    1,
		Price:       "100",
		Owner:       "alice",
	}.Serialize()
	_, err = parseMessage(full[:len(full)-3])
	assert.ErrorIs(t, err, ErrMessageTooShort)
}
