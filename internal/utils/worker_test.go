package utils

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tomb "gopkg.in/tomb.v2"
)

func TestWorkerPool_RunsTasks(t *testing.T) {
	pool := NewWorkerPool(4)

	var done atomic.Int64
	var tb tomb.Tomb
	pool.Setup(&tb, func(_ *tomb.Tomb, task any) error {
		done.Add(task.(int64))
		return nil
	})

	for i := 0; i < 10; i++ {
		pool.AddTask(int64(1))
	}

	assert.Eventually(t, func() bool {
		return done.Load() == 10
	}, time.Second, 5*time.Millisecond)

	tb.Kill(nil)
	require.NoError(t, tb.Wait())
}

func TestWorkerPool_FatalError(t *testing.T) {
	pool := NewWorkerPool(2)
	boom := errors.New("boom")

	var tb tomb.Tomb
	pool.Setup(&tb, func(_ *tomb.Tomb, task any) error {
		return boom
	})

	pool.AddTask(struct{}{})
	assert.ErrorIs(t, tb.Wait(), boom)
}
