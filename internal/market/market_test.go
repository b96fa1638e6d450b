package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larkbook/internal/book"
	"larkbook/internal/common"
	"larkbook/internal/fixedpoint"
	"larkbook/internal/levels"
	"larkbook/internal/matching"
)

func newTestMarket() *Market {
	ob := matching.New(levels.NewRBTree(levels.Bounds{}, book.KindOrderedMap))
	return New(ob, fixedpoint.NewConverter(0.01))
}

func TestSendMessage_ReceivedLimitRestsAndTracksExternalID(t *testing.T) {
	m := newTestMarket()
	_, oib := m.SendMessage(Message{
		Type:            Received,
		OrderType:       common.LimitOrder,
		Side:            common.Buy,
		Price:           99.99,
		Size:            10,
		TraderID:        common.ExternalTraderID,
		ExternalOrderID: "ext-1",
		Time:            "2021-01-01T00:00:00Z",
		External:        true,
	})
	require.NotNil(t, oib)
	assert.Equal(t, 1, m.ExternalOrderCount())

	bid, ok := m.OB.Index().GetBid()
	assert.True(t, ok)
	assert.Equal(t, int64(9999), bid)
}

func TestSendMessage_DoneCanceledRemovesByExternalID(t *testing.T) {
	m := newTestMarket()
	m.SendMessage(Message{
		Type: Received, OrderType: common.LimitOrder, Side: common.Buy,
		Price: 100, Size: 5, ExternalOrderID: "ext-1", External: true, Time: "t0",
	})
	require.Equal(t, 1, m.ExternalOrderCount())

	m.SendMessage(Message{
		Type: Done, Reason: ReasonCanceled, ExternalOrderID: "ext-1", External: true, Time: "t1",
	})
	assert.Equal(t, 0, m.ExternalOrderCount())
	assert.False(t, m.OB.Index().ExistBuyOrders())
}

func TestSendMessage_DoneFilledIsIgnored(t *testing.T) {
	m := newTestMarket()
	m.SendMessage(Message{
		Type: Received, OrderType: common.LimitOrder, Side: common.Buy,
		Price: 100, Size: 5, ExternalOrderID: "ext-1", External: true, Time: "t0",
	})
	m.SendMessage(Message{
		Type: Done, Reason: ReasonFilled, ExternalOrderID: "ext-1", External: true, Time: "t1",
	})
	// done/filled is a no-op for Market: the external id mapping is left
	// untouched (here the order is in fact still resting, since the
	// engine never matched it).
	assert.Equal(t, 1, m.ExternalOrderCount())
}

func TestSendMessage_ChangeResizesByExternalID(t *testing.T) {
	m := newTestMarket()
	m.SendMessage(Message{
		Type: Received, OrderType: common.LimitOrder, Side: common.Buy,
		Price: 100, Size: 5, ExternalOrderID: "ext-1", External: true, Time: "t0",
	})
	m.SendMessage(Message{
		Type: Change, Size: 12, ExternalOrderID: "ext-1", External: true, Time: "t1",
	})

	lvl := m.OB.Level(common.Buy, 10000)
	require.NotNil(t, lvl)
	assert.InDelta(t, 12.0, lvl.Size(), 1e-9)
}

func TestSendMessage_UnknownExternalIDIsIgnored(t *testing.T) {
	m := newTestMarket()
	assert.NotPanics(t, func() {
		m.SendMessage(Message{Type: Done, Reason: ReasonCanceled, ExternalOrderID: "missing", External: true, Time: "t0"})
		m.SendMessage(Message{Type: Change, Size: 1, ExternalOrderID: "missing", External: true, Time: "t0"})
	})
}

func TestSendMessage_MarketOrderByFunds(t *testing.T) {
	m := newTestMarket()
	m.SendMessage(Message{
		Type: Received, OrderType: common.LimitOrder, Side: common.Sell,
		Price: 100, Size: 10, ExternalOrderID: "ext-1", External: true, Time: "t0",
	})

	trades, _ := m.SendMessage(Message{
		Type: Received, OrderType: common.MarketOrder, Side: common.Buy,
		Size: -1, Funds: 500, External: true, Time: "t1",
	})
	require.Len(t, trades, 1)
	assert.InDelta(t, 5.0, trades[0].Size, 1e-9)
}

func TestFillSnap_LoadsRestingOrdersAndTracksExternalIDs(t *testing.T) {
	m := newTestMarket()
	m.FillSnap(Snapshot{
		Sequence: 1,
		Bids: []SnapshotOrder{
			{Price: 99.5, Size: 10, ExternalOrderID: "b1"},
			{Price: 99.0, Size: 5, ExternalOrderID: "b2"},
		},
		Asks: []SnapshotOrder{
			{Price: 100.5, Size: 7, ExternalOrderID: "a1"},
		},
	})

	assert.Equal(t, 3, m.ExternalOrderCount())
	bid, ok := m.OB.Index().GetBid()
	assert.True(t, ok)
	assert.Equal(t, int64(9950), bid)
	ask, ok := m.OB.Index().GetAsk()
	assert.True(t, ok)
	assert.Equal(t, int64(10050), ask)
}
