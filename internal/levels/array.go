package levels

import (
	"larkbook/internal/book"
	"larkbook/internal/common"
)

// ArrayLevels is the dense, direct-indexed Index variant: one
// pre-allocated slice of Level buckets spanning every tick between
// minPrice and maxPrice, with a cached bidIndex/askIndex pointer so
// best-quote access is O(1) amortised.
//
// A single slice is shared by both sides of the book: for a
// well-formed book best_bid < best_ask always holds, so a given price
// index is only ever touched by one side at a time, and sharing the
// allocation halves memory versus two full-range arrays.
//
// This is the performance target for real-world crypto books: tick
// grids are dense and price excursions are bounded, so the
// O(max_price-min_price) memory cost is cheap next to the O(1)
// best-quote win.
type ArrayLevels struct {
	minPrice, maxPrice int64
	maxIndex           int64
	bidIndex, askIndex int64
	slots              []book.Level
	levelKind          book.Kind
}

// NewArrayLevels builds the dense-array Index variant over
// [minPrice, maxPrice] inclusive. Unlike the other three variants,
// bounds are mandatory here — the array's size is derived from them.
func NewArrayLevels(minPrice, maxPrice int64, levelKind book.Kind) *ArrayLevels {
	maxIndex := maxPrice - minPrice
	return &ArrayLevels{
		minPrice:  minPrice,
		maxPrice:  maxPrice,
		maxIndex:  maxIndex,
		bidIndex:  0,
		askIndex:  maxIndex,
		slots:     make([]book.Level, maxIndex+1),
		levelKind: levelKind,
	}
}

func (a *ArrayLevels) priceIndex(price int64) int64 { return price - a.minPrice }
func (a *ArrayLevels) priceAt(index int64) int64    { return index + a.minPrice }

func (a *ArrayLevels) slotEmpty(index int64) bool {
	lvl := a.slots[index]
	return lvl == nil || lvl.IsEmpty()
}

func (a *ArrayLevels) GetLevel(_ common.Side, price int64) book.Level {
	return a.slots[a.priceIndex(price)]
}

func (a *ArrayLevels) inBounds(price int64) bool {
	return price >= a.minPrice && price <= a.maxPrice
}

func (a *ArrayLevels) AddOrder(side common.Side, price int64, size float64, traderID int64, orderID uint64) (*common.Order, bool) {
	if !a.inBounds(price) {
		return nil, false
	}
	index := a.priceIndex(price)
	lvl := a.slots[index]
	if lvl == nil {
		lvl = book.New(a.levelKind)
		a.slots[index] = lvl
	}
	order := newOrder(side, price, size, traderID, orderID)
	lvl.Append(order)

	if side == common.Buy {
		if index >= a.bidIndex {
			a.bidIndex = index
		}
	} else {
		if index <= a.askIndex {
			a.askIndex = index
		}
	}
	return order, true
}

func (a *ArrayLevels) RemoveLevel(_ common.Side, price int64) {
	index := a.priceIndex(price)
	a.slots[index] = nil
	switch {
	case index == a.askIndex:
		for a.askIndex < a.maxIndex && a.slotEmpty(a.askIndex) {
			a.askIndex++
		}
	case index == a.bidIndex:
		for a.bidIndex > 0 && a.slotEmpty(a.bidIndex) {
			a.bidIndex--
		}
	}
}

func (a *ArrayLevels) GetAsk() (int64, bool) {
	if a.slotEmpty(a.askIndex) {
		return 0, false
	}
	return a.priceAt(a.askIndex), true
}

func (a *ArrayLevels) GetBid() (int64, bool) {
	if a.slotEmpty(a.bidIndex) {
		return 0, false
	}
	return a.priceAt(a.bidIndex), true
}

func (a *ArrayLevels) ExistBuyOrders() bool  { return !a.slotEmpty(a.bidIndex) }
func (a *ArrayLevels) ExistSellOrders() bool { return !a.slotEmpty(a.askIndex) }

func (a *ArrayLevels) GetQuotes() (ask int64, askSize float64, bid int64, bidSize float64, ok bool) {
	askPrice, askOk := a.GetAsk()
	bidPrice, bidOk := a.GetBid()
	if !askOk || !bidOk {
		return 0, 0, 0, 0, false
	}
	return askPrice, a.slots[a.askIndex].Size(), bidPrice, a.slots[a.bidIndex].Size(), true
}

func (a *ArrayLevels) indexes(side common.Side) []int64 {
	var out []int64
	if side == common.Buy {
		for i := a.bidIndex; i >= 0; i-- {
			if !a.slotEmpty(i) {
				out = append(out, i)
			}
		}
		return out
	}
	for i := a.askIndex; i <= a.maxIndex; i++ {
		if !a.slotEmpty(i) {
			out = append(out, i)
		}
	}
	return out
}

func (a *ArrayLevels) GetPrices(side common.Side) []int64 {
	idx := a.indexes(side)
	prices := make([]int64, len(idx))
	for i, ix := range idx {
		prices[i] = a.priceAt(ix)
	}
	return prices
}

func (a *ArrayLevels) GetSnap() (bids map[int64]float64, asks map[int64]float64) {
	bids = make(map[int64]float64)
	asks = make(map[int64]float64)
	for _, ix := range a.indexes(common.Buy) {
		bids[a.priceAt(ix)] = a.slots[ix].Size()
	}
	for _, ix := range a.indexes(common.Sell) {
		asks[a.priceAt(ix)] = a.slots[ix].Size()
	}
	return bids, asks
}
