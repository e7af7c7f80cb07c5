package net

import (
	"encoding/binary"
	"errors"
	"strings"

	"garm/internal/common"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short")
	ErrInvalidPrice       = errors.New("invalid price")
)

type MessageType int

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	BookQuery
	TradeLogQuery
)

type Message interface {
	GetType() MessageType
}

// Message format constants
const (
	BaseMessageHeaderLen        = 2
	NewOrderMessageHeaderLen    = 1 + 1 + 4 + 8 + 1 + 1
	CancelOrderMessageHeaderLen = 4 + 8
	BookQueryMessageLen         = 4
	TradeLogQueryMessageLen     = 8
	tickerLen                   = 4
)

// Generic message type.
type BaseMessage struct {
	TypeOf MessageType // 2 bytes
}

func (m BaseMessage) GetType() MessageType {
	return m.TypeOf
}

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}

	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	msg = msg[2:]
	switch typeOf {
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	case NewOrder:
		return parseNewOrder(msg)
	case CancelOrder:
		return parseCancelOrder(msg)
	case BookQuery:
		return parseBookQuery(msg)
	case TradeLogQuery:
		return parseTradeLogQuery(msg)
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

// header prepends the 2-byte type field.
func header(typeOf MessageType, body []byte) []byte {
	buf := make([]byte, BaseMessageHeaderLen+len(body))
	binary.BigEndian.PutUint16(buf[0:2], uint16(typeOf))
	copy(buf[2:], body)
	return buf
}

// packTicker pads or truncates a ticker into its fixed 4-byte slot.
func packTicker(dst []byte, ticker string) {
	padded := make([]byte, tickerLen)
	copy(padded, ticker)
	copy(dst, padded)
}

func unpackTicker(src []byte) string {
	return strings.TrimRight(string(src[:tickerLen]), "\x00")
}

// NewOrderMessage carries a submission. The limit price travels as a
// decimal string so no precision is lost on the wire.
type NewOrderMessage struct {
	BaseMessage
	OrderType common.OrderType // 1 byte
	Side      common.Side      // 1 byte
	Ticker    string           // 4 bytes
	Quantity  uint64           // 8 bytes
	Price     string           // 1 byte length + n bytes
	Owner     string           // 1 byte length + n bytes
}

// Order converts the wire form into the engine's order entity.
func (m *NewOrderMessage) Order() (common.Order, error) {
	price := decimal.Zero
	if m.OrderType == common.LimitOrder {
		var err error
		price, err = decimal.NewFromString(m.Price)
		if err != nil {
			return common.Order{}, ErrInvalidPrice
		}
	}

	return common.Order{
		OrderType:  m.OrderType,
		Ticker:     m.Ticker,
		Side:       m.Side,
		LimitPrice: price,
		Quantity:   m.Quantity,
		Owner:      m.Owner,
	}, nil
}

func (m NewOrderMessage) Serialize() []byte {
	body := make([]byte, NewOrderMessageHeaderLen+len(m.Price)+len(m.Owner))
	body[0] = byte(m.OrderType)
	body[1] = byte(m.Side)
	packTicker(body[2:6], m.Ticker)
	binary.BigEndian.PutUint64(body[6:14], m.Quantity)

	offset := 14
	body[offset] = uint8(len(m.Price))
	offset++
	copy(body[offset:], m.Price)
	offset += len(m.Price)
	body[offset] = uint8(len(m.Owner))
	offset++
	copy(body[offset:], m.Owner)

	return header(NewOrder, body)
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	if len(msg) < NewOrderMessageHeaderLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}

	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}
	m.OrderType = common.OrderType(msg[0])
	m.Side = common.Side(msg[1])
	m.Ticker = unpackTicker(msg[2:6])
	m.Quantity = binary.BigEndian.Uint64(msg[6:14])

	offset := 14
	priceLen := int(msg[offset])
	offset++
	if len(msg) < offset+priceLen+1 {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Price = string(msg[offset : offset+priceLen])
	offset += priceLen

	ownerLen := int(msg[offset])
	offset++
	if len(msg) < offset+ownerLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.Owner = string(msg[offset : offset+ownerLen])

	return m, nil
}

type CancelOrderMessage struct {
	BaseMessage
	Ticker  string // 4 bytes
	OrderID uint64 // 8 bytes
}

func (m CancelOrderMessage) Serialize() []byte {
	body := make([]byte, CancelOrderMessageHeaderLen)
	packTicker(body[0:4], m.Ticker)
	binary.BigEndian.PutUint64(body[4:12], m.OrderID)
	return header(CancelOrder, body)
}

func parseCancelOrder(msg []byte) (CancelOrderMessage, error) {
	if len(msg) < CancelOrderMessageHeaderLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{
		BaseMessage: BaseMessage{TypeOf: CancelOrder},
		Ticker:      unpackTicker(msg[0:4]),
		OrderID:     binary.BigEndian.Uint64(msg[4:12]),
	}, nil
}

type BookQueryMessage struct {
	BaseMessage
	Ticker string // 4 bytes
}

func (m BookQueryMessage) Serialize() []byte {
	body := make([]byte, BookQueryMessageLen)
	packTicker(body[0:4], m.Ticker)
	return header(BookQuery, body)
}

func parseBookQuery(msg []byte) (BookQueryMessage, error) {
	if len(msg) < BookQueryMessageLen {
		return BookQueryMessage{}, ErrMessageTooShort
	}
	return BookQueryMessage{
		BaseMessage: BaseMessage{TypeOf: BookQuery},
		Ticker:      unpackTicker(msg[0:4]),
	}, nil
}

// TradeLogQueryMessage asks for every trade with sequence number >= From.
type TradeLogQueryMessage struct {
	BaseMessage
	From uint64 // 8 bytes
}

func (m TradeLogQueryMessage) Serialize() []byte {
	body := make([]byte, TradeLogQueryMessageLen)
	binary.BigEndian.PutUint64(body[0:8], m.From)
	return header(TradeLogQuery, body)
}

func parseTradeLogQuery(msg []byte) (TradeLogQueryMessage, error) {
	if len(msg) < TradeLogQueryMessageLen {
		return TradeLogQueryMessage{}, ErrMessageTooShort
	}
	return TradeLogQueryMessage{
		BaseMessage: BaseMessage{TypeOf: TradeLogQuery},
		From:        binary.BigEndian.Uint64(msg[0:8]),
	}, nil
}
