package levels

import (
	"larkbook/internal/book"
	"larkbook/internal/common"
)

// sideStore pairs one side's ordered price set with its price->Level
// map.
type sideStore struct {
	prices priceSet
	levels map[int64]book.Level
}

func newSideStore(ps priceSet) *sideStore {
	return &sideStore{prices: ps, levels: make(map[int64]book.Level)}
}

// treeLevels is the shared Index implementation for every priceSet-
// backed variant (sorted slice, red-black tree, AVL tree): the
// bid/ask bookkeeping, range check and snapshot logic are identical
// across all three, only the ordered-key structure differs.
type treeLevels struct {
	bids      *sideStore
	asks      *sideStore
	bounds    Bounds
	levelKind book.Kind
}

func newTreeLevels(psFactory func() priceSet, bounds Bounds, levelKind book.Kind) *treeLevels {
	return &treeLevels{
		bids:      newSideStore(psFactory()),
		asks:      newSideStore(psFactory()),
		bounds:    bounds,
		levelKind: levelKind,
	}
}

func (t *treeLevels) store(side common.Side) *sideStore {
	if side == common.Buy {
		return t.bids
	}
	return t.asks
}

func (t *treeLevels) GetLevel(side common.Side, price int64) book.Level {
	return t.store(side).levels[price]
}

func (t *treeLevels) AddOrder(side common.Side, price int64, size float64, traderID int64, orderID uint64) (*common.Order, bool) {
	if !t.bounds.accepts(price) {
		return nil, false
	}
	s := t.store(side)
	lvl, ok := s.levels[price]
	if !ok {
		lvl = book.New(t.levelKind)
		s.levels[price] = lvl
		s.prices.Insert(price)
	}
	order := newOrder(side, price, size, traderID, orderID)
	lvl.Append(order)
	return order, true
}

func (t *treeLevels) RemoveLevel(side common.Side, price int64) {
	s := t.store(side)
	delete(s.levels, price)
	s.prices.Delete(price)
}

func (t *treeLevels) GetAsk() (int64, bool) { return t.asks.prices.Min() }
func (t *treeLevels) GetBid() (int64, bool) { return t.bids.prices.Max() }

func (t *treeLevels) ExistBuyOrders() bool  { return t.bids.prices.Len() > 0 }
func (t *treeLevels) ExistSellOrders() bool { return t.asks.prices.Len() > 0 }

func (t *treeLevels) GetQuotes() (ask int64, askSize float64, bid int64, bidSize float64, ok bool) {
	a, aok := t.GetAsk()
	b, bok := t.GetBid()
	if !aok || !bok {
		return 0, 0, 0, 0, false
	}
	return a, t.asks.levels[a].Size(), b, t.bids.levels[b].Size(), true
}

func (t *treeLevels) GetPrices(side common.Side) []int64 {
	s := t.store(side)
	prices := make([]int64, 0, s.prices.Len())
	collect := func(p int64) bool {
		prices = append(prices, p)
		return true
	}
	if side == common.Buy {
		s.prices.Descend(collect)
	} else {
		s.prices.Ascend(collect)
	}
	return prices
}

func (t *treeLevels) GetSnap() (bids map[int64]float64, asks map[int64]float64) {
	bids = make(map[int64]float64, len(t.bids.levels))
	asks = make(map[int64]float64, len(t.asks.levels))
	for price, lvl := range t.bids.levels {
		bids[price] = lvl.Size()
	}
	for price, lvl := range t.asks.levels {
		asks[price] = lvl.Size()
	}
	return bids, asks
}
