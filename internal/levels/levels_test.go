package levels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"larkbook/internal/book"
	"larkbook/internal/common"
)

// every variant must satisfy the identical Index contract; array
// additionally requires bounds, which it takes as explicit constructor
// arguments, for the table-driven tests below.
func allVariants(t *testing.T) map[string]Index {
	t.Helper()
	return map[string]Index{
		"sorted_map": NewSortedMap(Bounds{}, book.KindOrderedMap),
		"rbtree":     NewRBTree(Bounds{}, book.KindOrderedMap),
		"avltree":    NewAVLTree(Bounds{}, book.KindOrderedMap),
		"array":      NewArrayLevels(0, 100000, book.KindOrderedMap),
	}
}

func TestIndex_AddOrderAndGetLevel(t *testing.T) {
	for name, idx := range allVariants(t) {
		order, ok := idx.AddOrder(common.Buy, 100, 10, 1, 1)
		require.True(t, ok, name)
		require.NotNil(t, order, name)

		lvl := idx.GetLevel(common.Buy, 100)
		require.NotNil(t, lvl, name)
		assert.InDelta(t, 10.0, lvl.Size(), 1e-9, name)
	}
}

func TestIndex_BestBidAsk(t *testing.T) {
	for name, idx := range allVariants(t) {
		idx.AddOrder(common.Buy, 99, 1, 1, 1)
		idx.AddOrder(common.Buy, 100, 1, 1, 2)
		idx.AddOrder(common.Buy, 98, 1, 1, 3)
		idx.AddOrder(common.Sell, 105, 1, 1, 4)
		idx.AddOrder(common.Sell, 104, 1, 1, 5)
		idx.AddOrder(common.Sell, 106, 1, 1, 6)

		bid, ok := idx.GetBid()
		assert.True(t, ok, name)
		assert.Equal(t, int64(100), bid, name)

		ask, ok := idx.GetAsk()
		assert.True(t, ok, name)
		assert.Equal(t, int64(104), ask, name)
	}
}

func TestIndex_RemoveLevelDropsFromBookkeeping(t *testing.T) {
	for name, idx := range allVariants(t) {
		idx.AddOrder(common.Buy, 100, 1, 1, 1)
		idx.AddOrder(common.Buy, 99, 1, 1, 2)

		idx.RemoveLevel(common.Buy, 100)
		bid, ok := idx.GetBid()
		assert.True(t, ok, name)
		assert.Equal(t, int64(99), bid, name)
	}
}

func TestIndex_ExistOrders(t *testing.T) {
	for name, idx := range allVariants(t) {
		assert.False(t, idx.ExistBuyOrders(), name)
		assert.False(t, idx.ExistSellOrders(), name)

		idx.AddOrder(common.Buy, 100, 1, 1, 1)
		assert.True(t, idx.ExistBuyOrders(), name)
		assert.False(t, idx.ExistSellOrders(), name)

		idx.RemoveLevel(common.Buy, 100)
		assert.False(t, idx.ExistBuyOrders(), name)
	}
}

func TestIndex_GetPricesOrdering(t *testing.T) {
	for name, idx := range allVariants(t) {
		idx.AddOrder(common.Buy, 98, 1, 1, 1)
		idx.AddOrder(common.Buy, 100, 1, 1, 2)
		idx.AddOrder(common.Buy, 99, 1, 1, 3)

		idx.AddOrder(common.Sell, 105, 1, 1, 4)
		idx.AddOrder(common.Sell, 103, 1, 1, 5)
		idx.AddOrder(common.Sell, 104, 1, 1, 6)

		assert.Equal(t, []int64{100, 99, 98}, idx.GetPrices(common.Buy), name)
		assert.Equal(t, []int64{103, 104, 105}, idx.GetPrices(common.Sell), name)
	}
}

func TestIndex_GetQuotes(t *testing.T) {
	for name, idx := range allVariants(t) {
		_, _, _, _, ok := idx.GetQuotes()
		assert.False(t, ok, name)

		idx.AddOrder(common.Buy, 99, 5, 1, 1)
		idx.AddOrder(common.Sell, 101, 7, 1, 2)

		ask, askSize, bid, bidSize, ok := idx.GetQuotes()
		assert.True(t, ok, name)
		assert.Equal(t, int64(101), ask, name)
		assert.InDelta(t, 7.0, askSize, 1e-9, name)
		assert.Equal(t, int64(99), bid, name)
		assert.InDelta(t, 5.0, bidSize, 1e-9, name)
	}
}

func TestIndex_GetSnap(t *testing.T) {
	for name, idx := range allVariants(t) {
		idx.AddOrder(common.Buy, 99, 5, 1, 1)
		idx.AddOrder(common.Buy, 99, 3, 1, 2)
		idx.AddOrder(common.Sell, 101, 2, 1, 3)

		bids, asks := idx.GetSnap()
		assert.InDelta(t, 8.0, bids[99], 1e-9, name)
		assert.InDelta(t, 2.0, asks[101], 1e-9, name)
	}
}

func TestArrayLevels_RejectsOutOfBoundsPrice(t *testing.T) {
	idx := NewArrayLevels(100, 200, book.KindOrderedMap)
	_, ok := idx.AddOrder(common.Buy, 50, 1, 1, 1)
	assert.False(t, ok)
	_, ok = idx.AddOrder(common.Buy, 150, 1, 1, 2)
	assert.True(t, ok)
}

func TestNew_Factory(t *testing.T) {
	idx := New(VariantRBTree, Bounds{}, book.KindDeque)
	assert.NotNil(t, idx)

	idx = New(VariantAVLTree, Bounds{}, book.KindOrderedMap)
	assert.NotNil(t, idx)

	assert.Panics(t, func() {
		New(VariantArray, Bounds{}, book.KindOrderedMap)
	})
}
