// Package ordwire is the binary TCP wire protocol for agent-authored
// orders: a trading agent connects, sends NewOrder/CancelOrder/
// UpdateOrder/LogBook frames, and receives ExecutionReport/ErrorReport
// frames back. It is the real-time counterpart to the file-replayed
// external feed in internal/replay; cmd/ordserver serves only this TCP
// intake and does not read the replay feed.
//
// Frames use a 2-byte big-endian type header followed by fixed-width
// fields, with explicit length prefixes for trailing strings.
package ordwire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"larkbook/internal/common"
)

var (
	ErrInvalidMessageType = errors.New("ordwire: invalid message type")
	ErrMessageTooShort    = errors.New("ordwire: message too short")
)

type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	CancelOrder
	UpdateOrder
	LogBook
)

type ReportType uint8

const (
	ExecutionReport ReportType = iota
	ErrorReport
)

// Message is any decoded client frame.
type Message interface {
	GetType() MessageType
}

const (
	baseHeaderLen        = 2
	newOrderBodyLen       = 2 + 8 + 8 + 8 // orderType+side(2) + price(8) + size(8) + traderID(8)
	cancelOrderBodyLen    = 8
	updateOrderBodyLen    = 8 + 8
)

// ParseMessage decodes a raw frame (type header plus body) into a
// concrete Message.
func ParseMessage(buf []byte) (Message, error) {
	if len(buf) < baseHeaderLen {
		return nil, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(buf[0:2]))
	body := buf[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case CancelOrder:
		return parseCancelOrder(body)
	case UpdateOrder:
		return parseUpdateOrder(body)
	case Heartbeat:
		return HeartbeatMessage{}, nil
	case LogBook:
		return LogBookMessage{}, nil
	default:
		return nil, ErrInvalidMessageType
	}
}

type HeartbeatMessage struct{}

func (HeartbeatMessage) GetType() MessageType { return Heartbeat }

type LogBookMessage struct{}

func (LogBookMessage) GetType() MessageType { return LogBook }

// NewOrderMessage places a limit order. OrderType distinguishes limit
// (0) from market (1); for a market order Price is ignored and Size is
// the base-asset quantity (a funds-denominated market order is a
// replay/API-only surface, not exposed to agents over this wire
// protocol).
type NewOrderMessage struct {
	OrderType uint8
	Side      common.Side
	Price     float64
	Size      float64
	TraderID  uint64
}

func (NewOrderMessage) GetType() MessageType { return NewOrder }

func parseNewOrder(body []byte) (NewOrderMessage, error) {
	if len(body) < newOrderBodyLen {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	return NewOrderMessage{
		OrderType: body[0],
		Side:      common.Side(body[1]),
		Price:     math.Float64frombits(binary.BigEndian.Uint64(body[2:10])),
		Size:      math.Float64frombits(binary.BigEndian.Uint64(body[10:18])),
		TraderID:  binary.BigEndian.Uint64(body[18:26]),
	}, nil
}

func (m NewOrderMessage) Serialize() []byte {
	buf := make([]byte, baseHeaderLen+newOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	buf[2] = m.OrderType
	buf[3] = byte(m.Side)
	binary.BigEndian.PutUint64(buf[4:12], math.Float64bits(m.Price))
	binary.BigEndian.PutUint64(buf[12:20], math.Float64bits(m.Size))
	binary.BigEndian.PutUint64(buf[20:28], m.TraderID)
	return buf
}

// CancelOrderMessage cancels a resting order by its internal id (the
// id returned to the agent in the ExecutionReport that rested it).
type CancelOrderMessage struct {
	OrderID uint64
}

func (CancelOrderMessage) GetType() MessageType { return CancelOrder }

func parseCancelOrder(body []byte) (CancelOrderMessage, error) {
	if len(body) < cancelOrderBodyLen {
		return CancelOrderMessage{}, ErrMessageTooShort
	}
	return CancelOrderMessage{OrderID: binary.BigEndian.Uint64(body[0:8])}, nil
}

func (m CancelOrderMessage) Serialize() []byte {
	buf := make([]byte, baseHeaderLen+cancelOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], m.OrderID)
	return buf
}

// UpdateOrderMessage resizes a resting order in place.
type UpdateOrderMessage struct {
	OrderID uint64
	NewSize float64
}

func (UpdateOrderMessage) GetType() MessageType { return UpdateOrder }

func parseUpdateOrder(body []byte) (UpdateOrderMessage, error) {
	if len(body) < updateOrderBodyLen {
		return UpdateOrderMessage{}, ErrMessageTooShort
	}
	return UpdateOrderMessage{
		OrderID: binary.BigEndian.Uint64(body[0:8]),
		NewSize: math.Float64frombits(binary.BigEndian.Uint64(body[8:16])),
	}, nil
}

func (m UpdateOrderMessage) Serialize() []byte {
	buf := make([]byte, baseHeaderLen+updateOrderBodyLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(UpdateOrder))
	binary.BigEndian.PutUint64(buf[2:10], m.OrderID)
	binary.BigEndian.PutUint64(buf[10:18], math.Float64bits(m.NewSize))
	return buf
}

// Report is a server->client frame: either a fill report or an error
// report.
type Report struct {
	Type         ReportType
	Side         common.Side
	Price        int64
	Size         float64
	OrderID      uint64
	Counterparty uint64
	ErrStrLen    uint32
	Err          string
}

const reportFixedLen = 1 + 1 + 8 + 8 + 8 + 8 + 4

// Serialize renders the report to wire bytes.
func (r Report) Serialize() []byte {
	buf := make([]byte, reportFixedLen+len(r.Err))
	buf[0] = byte(r.Type)
	buf[1] = byte(r.Side)
	binary.BigEndian.PutUint64(buf[2:10], uint64(r.Price))
	binary.BigEndian.PutUint64(buf[10:18], math.Float64bits(r.Size))
	binary.BigEndian.PutUint64(buf[18:26], r.OrderID)
	binary.BigEndian.PutUint64(buf[26:34], r.Counterparty)
	binary.BigEndian.PutUint32(buf[34:38], r.ErrStrLen)
	copy(buf[38:], r.Err)
	return buf
}

// NewErrorReport builds an ErrorReport frame from a Go error.
func NewErrorReport(err error) Report {
	s := fmt.Sprintf("%v", err)
	return Report{Type: ErrorReport, ErrStrLen: uint32(len(s)), Err: s}
}

// NewTradeReport builds an ExecutionReport frame for one side of a
// trade.
func NewTradeReport(t common.Trade, side common.Side, orderID, counterparty uint64) Report {
	return Report{
		Type:         ExecutionReport,
		Side:         side,
		Price:        t.Price,
		Size:         t.Size,
		OrderID:      orderID,
		Counterparty: counterparty,
	}
}
