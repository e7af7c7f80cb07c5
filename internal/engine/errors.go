package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrder rejects a submission before it touches either queue.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrUnknownInstrument is an ErrInvalidOrder for a ticker this engine
	// was not configured with.
	ErrUnknownInstrument = fmt.Errorf("%w: unrecognized instrument", ErrInvalidOrder)
	// ErrOrderNotFound means the order is unknown, already filled or
	// already cancelled.
	ErrOrderNotFound = errors.New("order not found")
	// ErrEngineClosed rejects commands once shutdown has begun.
	ErrEngineClosed = errors.New("engine closed")
	// ErrNotEnoughLiquidity rejects a market order the resting side cannot
	// fully cover.
	ErrNotEnoughLiquidity = errors.New("not enough liquidity")
)
