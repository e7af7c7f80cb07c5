package net

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"garm/internal/book"
	"garm/internal/common"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportFrames_RoundTrip(t *testing.T) {
	trade := common.Trade{
		Seq:         3,
		Ticker:      "AAPL",
		BuyOrderID:  1,
		SellOrderID: 2,
		Buyer:       "alice",
		Seller:      "bob",
		Quantity:    7,
		Price:       decimal.RequireFromString("99.5"),
		TakerSide:   common.Sell,
		Timestamp:   time.Now().UTC().Truncate(time.Second),
	}

	var buf bytes.Buffer
	frame, err := serializeExecution(trade)
	require.NoError(t, err)
	buf.Write(frame)
	buf.Write(serializeAck(OrderAck, 12))
	buf.Write(serializeError(errors.New("boom")))

	typeOf, payload, err := ReadReport(&buf)
	require.NoError(t, err)
	assert.Equal(t, ExecutionReport, typeOf)
	got, err := ParseExecution(payload)
	require.NoError(t, err)
	assert.Equal(t, trade.Seq, got.Seq)
	assert.True(t, got.Price.Equal(trade.Price))
	assert.Equal(t, trade.Buyer, got.Buyer)

	typeOf, payload, err = ReadReport(&buf)
	require.NoError(t, err)
	assert.Equal(t, OrderAck, typeOf)
	id, err := ParseAck(payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	typeOf, payload, err = ReadReport(&buf)
	require.NoError(t, err)
	assert.Equal(t, ErrorReport, typeOf)
	assert.Equal(t, "boom", string(payload))
}

func TestBookReport_RoundTrip(t *testing.T) {
	snapshot := BookSnapshot{
		Ticker: "AAPL",
		Bids: []book.FlatPriceLevel{{
			Price: decimal.NewFromInt(100),
			Orders: []common.Order{{
				ID:         1,
				Ticker:     "AAPL",
				Side:       common.Buy,
				LimitPrice: decimal.NewFromInt(100),
				Quantity:   5,
			}},
		}},
	}

	frame, err := serializeBook(snapshot)
	require.NoError(t, err)

	typeOf, payload, err := ReadReport(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, BookReport, typeOf)

	got, err := ParseBook(payload)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Ticker)
	require.Len(t, got.Bids, 1)
	assert.True(t, got.Bids[0].Price.Equal(decimal.NewFromInt(100)))
	require.Len(t, got.Bids[0].Orders, 1)
	assert.Equal(t, uint64(5), got.Bids[0].Orders[0].Quantity)
}
