package net

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"garm/internal/book"
	"garm/internal/common"
)

type ReportType int

const (
	OrderAck ReportType = iota
	CancelAck
	ExecutionReport
	ErrorReport
	BookReport
	TradeLogReport
)

// Every server-to-client report is a length-prefixed frame:
// [type:1][payload length:4][payload]. Acks are binary, errors are the
// raw message bytes, everything else is JSON.
const reportHeaderLen = 5

func serializeFrame(typeOf ReportType, payload []byte) []byte {
	buf := make([]byte, reportHeaderLen+len(payload))
	buf[0] = byte(typeOf)
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	return buf
}

// ReadReport blocks until a full report frame arrives on r.
func ReadReport(r io.Reader) (ReportType, []byte, error) {
	head := make([]byte, reportHeaderLen)
	if _, err := io.ReadFull(r, head); err != nil {
		return 0, nil, err
	}
	typeOf := ReportType(head[0])
	payload := make([]byte, binary.BigEndian.Uint32(head[1:5]))
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return typeOf, payload, nil
}

func serializeAck(typeOf ReportType, orderID uint64) []byte {
	payload := make([]byte, 8)
	binary.BigEndian.PutUint64(payload, orderID)
	return serializeFrame(typeOf, payload)
}

// ParseAck extracts the order id from an OrderAck or CancelAck payload.
func ParseAck(payload []byte) (uint64, error) {
	if len(payload) < 8 {
		return 0, ErrMessageTooShort
	}
	return binary.BigEndian.Uint64(payload[0:8]), nil
}

func serializeError(err error) []byte {
	return serializeFrame(ErrorReport, []byte(err.Error()))
}

func serializeExecution(trade common.Trade) ([]byte, error) {
	payload, err := json.Marshal(trade)
	if err != nil {
		return nil, err
	}
	return serializeFrame(ExecutionReport, payload), nil
}

// ParseExecution decodes an ExecutionReport payload.
func ParseExecution(payload []byte) (common.Trade, error) {
	var trade common.Trade
	err := json.Unmarshal(payload, &trade)
	return trade, err
}

// BookSnapshot is the JSON body of a BookReport, both sides best-first.
type BookSnapshot struct {
	Ticker string                `json:"ticker"`
	Bids   []book.FlatPriceLevel `json:"bids"`
	Asks   []book.FlatPriceLevel `json:"asks"`
}

func serializeBook(snapshot BookSnapshot) ([]byte, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}
	return serializeFrame(BookReport, payload), nil
}

// ParseBook decodes a BookReport payload.
func ParseBook(payload []byte) (BookSnapshot, error) {
	var snapshot BookSnapshot
	err := json.Unmarshal(payload, &snapshot)
	return snapshot, err
}

func serializeTradeLog(trades []common.Trade) ([]byte, error) {
	payload, err := json.Marshal(trades)
	if err != nil {
		return nil, err
	}
	return serializeFrame(TradeLogReport, payload), nil
}

// ParseTradeLog decodes a TradeLogReport payload.
func ParseTradeLog(payload []byte) ([]common.Trade, error) {
	var trades []common.Trade
	err := json.Unmarshal(payload, &trades)
	return trades, err
}
