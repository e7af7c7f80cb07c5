package tradelog

import (
	"testing"

	"garm/internal/common"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrade(qty uint64, price int64) common.Trade {
	return common.Trade{
		Ticker:      "AAPL",
		BuyOrderID:  1,
		SellOrderID: 2,
		Buyer:       "alice",
		Seller:      "bob",
		Quantity:    qty,
		Price:       decimal.NewFromInt(price),
		TakerSide:   common.Buy,
	}
}

func TestLog_AppendAssignsSequence(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)

	first := l.Append(testTrade(10, 100))
	second := l.Append(testTrade(5, 101))

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, uint64(2), l.Len())
}

func TestLog_Get(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)
	appended := l.Append(testTrade(10, 100))

	got, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, appended, got)

	_, ok = l.Get(0)
	assert.False(t, ok)
	_, ok = l.Get(2)
	assert.False(t, ok)
}

func TestLog_TradesIsACopy(t *testing.T) {
	l, err := New(nil)
	require.NoError(t, err)
	l.Append(testTrade(10, 100))

	trades := l.Trades()
	require.Len(t, trades, 1)
	trades[0].Quantity = 0

	again, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, uint64(10), again.Quantity)
}

func TestLog_PersistAndReplay(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenStore(dir)
	require.NoError(t, err)

	l, err := New(store)
	require.NoError(t, err)
	l.Append(testTrade(10, 100))
	l.Append(testTrade(5, 101))

	// Close flushes the write-behind queue.
	require.NoError(t, l.Close())
	require.NoError(t, store.Close())

	// A fresh log over the same store continues the sequence.
	store, err = OpenStore(dir)
	require.NoError(t, err)
	defer store.Close()

	replayed, err := New(store)
	require.NoError(t, err)
	defer replayed.Close()

	assert.Equal(t, uint64(2), replayed.Len())
	first, ok := replayed.Get(1)
	require.True(t, ok)
	assert.Equal(t, uint64(10), first.Quantity)
	assert.True(t, first.Price.Equal(decimal.NewFromInt(100)))

	next := replayed.Append(testTrade(1, 99))
	assert.Equal(t, uint64(3), next.Seq)
}

func TestStore_ReplayOrder(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir)
	require.NoError(t, err)
	defer store.Close()

	// Written out of order, replayed in sequence order via the key space.
	for _, seq := range []uint64{3, 1, 2} {
		trade := testTrade(seq, 100)
		trade.Seq = seq
		require.NoError(t, store.Put(trade))
	}

	var seqs []uint64
	err = store.Replay(func(trade common.Trade) error {
		seqs = append(seqs, trade.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, seqs)
}
