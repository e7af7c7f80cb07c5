package feed

import (
	"testing"
	"time"

	"garm/internal/common"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_ReportNeverBlocks(t *testing.T) {
	// No broker is listening here; reporting must still return instantly
	// and shutdown must not hang on the failed produce.
	p := NewPublisher([]string{"127.0.0.1:1"}, "garm.trades")

	done := make(chan struct{})
	go func() {
		for i := 0; i < publishQueueSize*2; i++ {
			p.ReportTrade(common.Trade{
				Seq:      uint64(i + 1),
				Ticker:   "AAPL",
				Quantity: 1,
				Price:    decimal.NewFromInt(100),
			})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ReportTrade blocked")
	}

	require.NoError(t, p.Close())
	assert.NotPanics(t, func() {
		p.ReportTrade(common.Trade{Seq: 1})
	})
}
