// Package market wraps an OrderBook and translates Coinbase-style L3
// feed messages (received/done/change) into matching-engine calls,
// maintaining the external order id <-> internal order id mapping that
// lets an opaque exchange id be cancelled or resized later.
package market

import (
	"github.com/rs/zerolog/log"

	"larkbook/internal/common"
	"larkbook/internal/fixedpoint"
	"larkbook/internal/matching"
)

// MessageType mirrors the L3 feed envelope's `type` field.
type MessageType string

const (
	Received MessageType = "received"
	Done     MessageType = "done"
	Change   MessageType = "change"
)

// DoneReason mirrors the `reason` field on a `done` message.
type DoneReason string

const (
	ReasonCanceled DoneReason = "canceled"
	ReasonFilled   DoneReason = "filled"
)

// Message is the decoded L3 feed envelope. Size and
// Funds default to -1 when absent, matching the wire format. Price is
// the *float* exchange price for external messages; Side is always
// provided. ExternalOrderID is the opaque exchange id, only meaningful
// for External messages.
type Message struct {
	Type             MessageType
	OrderType        common.OrderType
	Side             common.Side
	Price            float64
	Size             float64
	Funds            float64
	TraderID         int64
	ExternalOrderID  string
	InternalOrderID  uint64
	Reason           DoneReason
	Time             string
	External         bool
}

// SnapshotOrder is one resting order in a Snapshot's bids/asks list.
type SnapshotOrder struct {
	Price           float64
	Size            float64
	ExternalOrderID string
}

// Snapshot is a full L3 snapshot.
type Snapshot struct {
	Sequence int64
	Bids     []SnapshotOrder
	Asks     []SnapshotOrder
}

// Market owns an OrderBook and the external-id mapping. An exchange id
// is added when its order rests and removed on done/canceled. An id
// whose order is later consumed in full by matching is not removed, so
// the map can hold ids of orders that no longer rest.
type Market struct {
	OB         *matching.OrderBook
	converter  fixedpoint.Converter
	externalID map[string]uint64
	time       string
}

// New constructs a Market over the given OrderBook and tick converter.
func New(ob *matching.OrderBook, converter fixedpoint.Converter) *Market {
	return &Market{
		OB:         ob,
		converter:  converter,
		externalID: make(map[string]uint64),
		time:       "2000-01-01T00:00:00Z",
	}
}

// SendMessage dispatches one decoded message to the order book by
// type. It returns any trades generated and the OrderInBook if a limit
// order newly rested.
func (m *Market) SendMessage(msg Message) ([]common.Trade, *common.OrderInBook) {
	if msg.External {
		m.time = msg.Time
	}

	switch msg.Type {
	case Received:
		return m.handleReceived(msg)
	case Done:
		m.handleDone(msg)
		return nil, nil
	case Change:
		m.handleChange(msg)
		return nil, nil
	default:
		return nil, nil
	}
}

func (m *Market) handleReceived(msg Message) ([]common.Trade, *common.OrderInBook) {
	switch msg.OrderType {
	case common.LimitOrder:
		price := msg.Price
		ticks := int64(price)
		if msg.External {
			ticks = m.converter.ToTicks(price)
		}
		trades, oib := m.OB.Limit(ticks, msg.Side, msg.Size, msg.TraderID, m.time)
		if msg.External && oib != nil {
			m.externalID[msg.ExternalOrderID] = oib.OrderID
		}
		return trades, oib
	case common.MarketOrder:
		if msg.Size != -1 {
			return m.OB.MarketOrder(msg.Size, msg.Side, msg.TraderID, m.time), nil
		}
		return m.OB.MarketOrderFunds(m.converter.ScaleFunds(msg.Funds), msg.Side, msg.TraderID, m.time), nil
	default:
		return nil, nil
	}
}

func (m *Market) handleDone(msg Message) {
	if msg.Reason != ReasonCanceled {
		return
	}
	if msg.External {
		internalID, ok := m.externalID[msg.ExternalOrderID]
		if !ok {
			log.Debug().Str("externalOrderID", msg.ExternalOrderID).Msg("done/canceled for unknown external id, ignored")
			return
		}
		delete(m.externalID, msg.ExternalOrderID)
		m.OB.Cancel(internalID)
		return
	}
	m.OB.Cancel(msg.InternalOrderID)
}

func (m *Market) handleChange(msg Message) {
	if msg.External {
		internalID, ok := m.externalID[msg.ExternalOrderID]
		if !ok {
			log.Debug().Str("externalOrderID", msg.ExternalOrderID).Msg("change for unknown external id, ignored")
			return
		}
		m.OB.Update(internalID, msg.Size)
		return
	}
	m.OB.Update(msg.InternalOrderID, msg.Size)
}

// FillSnap loads a snapshot's resting orders into the (assumed empty)
// order book, recording every resulting resting order's external id.
// A snapshot never triggers matching in a correctly-reset book; if
// residual crosses do occur regardless (a malformed snapshot), the
// engine still produces a consistent book and any trades are silently
// dropped — the snapshot is authoritative.
func (m *Market) FillSnap(snap Snapshot) {
	for _, so := range snap.Bids {
		ticks := m.converter.ToTicks(so.Price)
		_, oib := m.OB.Limit(ticks, common.Buy, so.Size, common.ExternalTraderID, m.time)
		if oib != nil {
			m.externalID[so.ExternalOrderID] = oib.OrderID
		}
	}
	for _, so := range snap.Asks {
		ticks := m.converter.ToTicks(so.Price)
		_, oib := m.OB.Limit(ticks, common.Sell, so.Size, common.ExternalTraderID, m.time)
		if oib != nil {
			m.externalID[so.ExternalOrderID] = oib.OrderID
		}
	}
}

// ExternalOrderCount reports how many exchange ids are currently in
// the external-id map, used by tests and diagnostics.
func (m *Market) ExternalOrderCount() int { return len(m.externalID) }
