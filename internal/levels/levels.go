// Package levels implements the per-side price index that sits between
// the OrderBook matcher and the individual book.Level FIFO buckets.
//
// Four interchangeable implementations satisfy the Index interface so
// the matching engine's price-level map can be swapped at construction
// time for benchmarking: a sorted slice baseline, a red-black-flavored
// tree backed by tidwall/btree, a hand-rolled AVL tree, and a dense
// array indexed by price-min_price.
package levels

import (
	"larkbook/internal/book"
	"larkbook/internal/common"
)

// Index is the price-level map contract. Implementations never expose
// an empty level: the call that empties a level also removes it.
type Index interface {
	// GetLevel returns the level at side/price. Behaviour is undefined
	// if no such level exists; callers only call this after confirming
	// presence (via AddOrder's return, or GetPrices/GetSnap contents).
	GetLevel(side common.Side, price int64) book.Level

	// AddOrder inserts a new order, creating the level lazily if
	// needed. ok is false (no order created) if price falls outside
	// the configured [min, max] bound.
	AddOrder(side common.Side, price int64, size float64, traderID int64, orderID uint64) (order *common.Order, ok bool)

	// RemoveLevel drops the (assumed empty) level from the side map.
	RemoveLevel(side common.Side, price int64)

	// GetAsk returns the best (lowest) resting sell price.
	GetAsk() (int64, bool)

	// GetBid returns the best (highest) resting buy price.
	GetBid() (int64, bool)

	ExistBuyOrders() bool
	ExistSellOrders() bool

	// GetQuotes returns (ask, askSize, bid, bidSize) in one call.
	GetQuotes() (ask int64, askSize float64, bid int64, bidSize float64, ok bool)

	// GetPrices walks prices from best outward: descending for BUY,
	// ascending for SELL.
	GetPrices(side common.Side) []int64

	// GetSnap returns, per side, the non-empty levels' total sizes
	// keyed by price.
	GetSnap() (bids map[int64]float64, asks map[int64]float64)
}

// Bounds configures the price range AddOrder accepts. A zero-value
// Bounds (Min == Max == 0) disables the check.
type Bounds struct {
	Min, Max int64
	Enabled  bool
}

func (b Bounds) accepts(price int64) bool {
	if !b.Enabled {
		return true
	}
	return price >= b.Min && price <= b.Max
}

func newOrder(side common.Side, price int64, size float64, traderID int64, orderID uint64) *common.Order {
	return &common.Order{
		Side:     side,
		Price:    price,
		Size:     size,
		TraderID: traderID,
		OrderID:  orderID,
	}
}
