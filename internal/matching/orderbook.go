// Package matching implements the core matching engine: the four
// operations that execute limit/market orders and cancel/change resting
// ones against the two-sided price index, in strict price-time
// priority. The engine is single-threaded per instance: no lock here,
// the caller serializes access.
package matching

import (
	"errors"

	"github.com/rs/zerolog/log"

	"larkbook/internal/book"
	"larkbook/internal/common"
	"larkbook/internal/levels"
)

// ErrResyncRequired signals a recoverable book inconsistency: the
// caller should discard the book and reload from the next snapshot
// rather than continue feeding it.
var ErrResyncRequired = errors.New("matching: book inconsistency, resync required")

// OrderBook is the matching engine for a single product. It owns the
// price index (levels.Index) and the order-id lookup table used for
// O(1) cancel/update.
type OrderBook struct {
	index   levels.Index
	orders  map[uint64]*common.Order
	counter uint64
}

// New constructs an empty OrderBook over the given price-level index.
// The index's variant (sorted map, rbtree, avltree, array) and level
// kind (ordered map, deque) are chosen by the caller via
// levels.New/book.New — the OrderBook itself calls the index through
// the levels.Index interface and does not care which concrete variant
// it was handed.
func New(index levels.Index) *OrderBook {
	return &OrderBook{
		index:  index,
		orders: make(map[uint64]*common.Order),
	}
}

// Limit matches against the opposite side while it crosses, then rests
// any residue. Returns the trades generated and, if size remains and
// rests successfully, the resulting OrderInBook.
func (ob *OrderBook) Limit(price int64, side common.Side, size float64, traderID int64, t string) ([]common.Trade, *common.OrderInBook) {
	var trades []common.Trade
	opposite := common.Sell
	if side == common.Sell {
		opposite = common.Buy
	}

	crosses := func(best int64) bool {
		if side == common.Buy {
			return price >= best
		}
		return price <= best
	}

	existOpposite := ob.index.ExistSellOrders
	bestOpposite := ob.index.GetAsk
	if side == common.Sell {
		existOpposite = ob.index.ExistBuyOrders
		bestOpposite = ob.index.GetBid
	}

	for existOpposite() && size > 0 {
		best, ok := bestOpposite()
		if !ok || !crosses(best) {
			break
		}
		lvl := ob.index.GetLevel(opposite, best)
		for !lvl.IsEmpty() && size > 0 {
			head := lvl.First()
			headSize := head.Size
			if size < headSize {
				lvl.Update(head, -size)
				trades = append(trades, common.Trade{
					TakerTraderID: traderID,
					MakerTraderID: head.TraderID,
					Price:         best,
					Size:          size,
					MakerOrderID:  head.OrderID,
					TakerSide:     side,
					Time:          t,
				})
				return trades, nil
			}
			lvl.RemoveFirst()
			delete(ob.orders, head.OrderID)
			if lvl.IsEmpty() {
				ob.index.RemoveLevel(opposite, best)
			}
			size -= headSize
			trades = append(trades, common.Trade{
				TakerTraderID: traderID,
				MakerTraderID: head.TraderID,
				Price:         best,
				Size:          headSize,
				MakerOrderID:  head.OrderID,
				TakerSide:     side,
				Time:          t,
			})
			if size == 0 {
				return trades, nil
			}
		}
	}

	if size <= 0 {
		return trades, nil
	}

	ob.counter++
	order, ok := ob.index.AddOrder(side, price, size, traderID, ob.counter)
	if !ok {
		ob.counter--
		log.Debug().Int64("price", price).Msg("limit order rejected: price out of range")
		return trades, nil
	}
	ob.orders[order.OrderID] = order
	return trades, &common.OrderInBook{OrderID: order.OrderID, Size: size, Side: side, Price: price}
}

// MarketOrder sweeps the opposite side until size is exhausted or the
// book empties. Unlike Limit, any unfilled remainder is discarded — the
// caller is responsible for reporting partial fills.
func (ob *OrderBook) MarketOrder(size float64, side common.Side, traderID int64, t string) []common.Trade {
	var trades []common.Trade
	opposite := common.Sell
	existOpposite := ob.index.ExistSellOrders
	bestOpposite := ob.index.GetAsk
	if side == common.Sell {
		opposite = common.Buy
		existOpposite = ob.index.ExistBuyOrders
		bestOpposite = ob.index.GetBid
	}

	for size > common.SizeEpsilon && existOpposite() {
		best, ok := bestOpposite()
		if !ok {
			break
		}
		lvl := ob.index.GetLevel(opposite, best)
		for !lvl.IsEmpty() && size > 0 {
			head := lvl.First()
			headSize := head.Size
			if size < headSize {
				lvl.Update(head, -size)
				trades = append(trades, common.Trade{
					TakerTraderID: traderID,
					MakerTraderID: head.TraderID,
					Price:         best,
					Size:          size,
					MakerOrderID:  head.OrderID,
					TakerSide:     side,
					Time:          t,
				})
				return trades
			}
			lvl.RemoveFirst()
			delete(ob.orders, head.OrderID)
			size -= headSize
			trades = append(trades, common.Trade{
				TakerTraderID: traderID,
				MakerTraderID: head.TraderID,
				Price:         best,
				Size:          headSize,
				MakerOrderID:  head.OrderID,
				TakerSide:     side,
				Time:          t,
			})
			if size == 0 {
				if lvl.IsEmpty() {
					ob.index.RemoveLevel(opposite, best)
				}
				return trades
			}
		}
		if lvl.IsEmpty() {
			ob.index.RemoveLevel(opposite, best)
		}
	}
	return trades
}

// MarketOrderFunds executes a notional (funds-denominated) market
// order. On entering each price level, size is derived once as
// funds/price, and funds is decremented by executed_size*price
// only when the head is fully consumed; see DESIGN.md Open Question #2
// for the rounding convention this preserves.
func (ob *OrderBook) MarketOrderFunds(funds float64, side common.Side, traderID int64, t string) []common.Trade {
	var trades []common.Trade
	opposite := common.Sell
	existOpposite := ob.index.ExistSellOrders
	bestOpposite := ob.index.GetAsk
	if side == common.Sell {
		opposite = common.Buy
		existOpposite = ob.index.ExistBuyOrders
		bestOpposite = ob.index.GetBid
	}

	for funds > common.SizeEpsilon && existOpposite() {
		best, ok := bestOpposite()
		if !ok {
			break
		}
		size := funds / float64(best)
		lvl := ob.index.GetLevel(opposite, best)
		for !lvl.IsEmpty() && size > 0 {
			head := lvl.First()
			headSize := head.Size
			if size < headSize {
				lvl.Update(head, -size)
				trades = append(trades, common.Trade{
					TakerTraderID: traderID,
					MakerTraderID: head.TraderID,
					Price:         best,
					Size:          size,
					MakerOrderID:  head.OrderID,
					TakerSide:     side,
					Time:          t,
				})
				return trades
			}
			lvl.RemoveFirst()
			delete(ob.orders, head.OrderID)
			size -= headSize
			trades = append(trades, common.Trade{
				TakerTraderID: traderID,
				MakerTraderID: head.TraderID,
				Price:         best,
				Size:          headSize,
				MakerOrderID:  head.OrderID,
				TakerSide:     side,
				Time:          t,
			})
			if size == 0 {
				if lvl.IsEmpty() {
					ob.index.RemoveLevel(opposite, best)
				}
				return trades
			}
			funds -= headSize * float64(best)
		}
		if lvl.IsEmpty() {
			ob.index.RemoveLevel(opposite, best)
		}
	}
	return trades
}

// Cancel removes a resting order by id. Unknown ids are a silent
// no-op.
func (ob *OrderBook) Cancel(orderID uint64) {
	order, ok := ob.orders[orderID]
	if !ok {
		log.Debug().Uint64("orderID", orderID).Msg("cancel of unknown order id, ignored")
		return
	}
	delete(ob.orders, orderID)
	lvl := ob.index.GetLevel(order.Side, order.Price)
	lvl.Remove(order)
	if lvl.IsEmpty() {
		ob.index.RemoveLevel(order.Side, order.Price)
	}
}

// Update resizes a resting order in place, preserving its FIFO
// priority (see DESIGN.md Open Question #1). Unknown ids are a silent
// no-op.
func (ob *OrderBook) Update(orderID uint64, newSize float64) {
	order, ok := ob.orders[orderID]
	if !ok {
		log.Debug().Uint64("orderID", orderID).Msg("update of unknown order id, ignored")
		return
	}
	lvl := ob.index.GetLevel(order.Side, order.Price)
	lvl.Update(order, newSize-order.Size)
}

// GetQuotes returns (ask, askSize, bid, bidSize).
func (ob *OrderBook) GetQuotes() (ask int64, askSize float64, bid int64, bidSize float64, ok bool) {
	return ob.index.GetQuotes()
}

// GetSnap returns the current resting book aggregated by price.
func (ob *OrderBook) GetSnap() (bids map[int64]float64, asks map[int64]float64) {
	return ob.index.GetSnap()
}

// GetPrices walks resting prices on one side from best outward.
func (ob *OrderBook) GetPrices(side common.Side) []int64 {
	return ob.index.GetPrices(side)
}

// Index exposes the underlying price index for callers (e.g. tests)
// that need direct read access, such as reading the best bid or ask.
func (ob *OrderBook) Index() levels.Index { return ob.index }

// OrderCount returns the number of resting orders, used by invariant
// checks and tests.
func (ob *OrderBook) OrderCount() int { return len(ob.orders) }

// Level exposes the resting level at side/price for read-only
// inspection (tests, invariant checks).
func (ob *OrderBook) Level(side common.Side, price int64) book.Level {
	return ob.index.GetLevel(side, price)
}

// CheckCrossed reports a recoverable book inconsistency: either the
// book is crossed (best_bid >= best_ask), or it holds resting orders on
// exactly one side. A book with no resting orders on either side is
// not flagged by the second check — that is the ordinary state before
// the first order arrives.
func (ob *OrderBook) CheckCrossed() error {
	ask, askOk := ob.index.GetAsk()
	bid, bidOk := ob.index.GetBid()
	if askOk && bidOk && bid >= ask {
		return ErrResyncRequired
	}
	if askOk != bidOk {
		return ErrResyncRequired
	}
	return nil
}
