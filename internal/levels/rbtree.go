package levels

import (
	"github.com/tidwall/btree"

	"larkbook/internal/book"
)

// btreePriceSet adapts a tidwall/btree.BTreeG[int64] to the priceSet
// interface: a self-balancing tree with O(log n) insert/delete and
// explicit min/max accessors, standing in for a red-black tree price
// index.
type btreePriceSet struct {
	tree *btree.BTreeG[int64]
}

func newBTreePriceSet() priceSet {
	return &btreePriceSet{
		tree: btree.NewBTreeG(func(a, b int64) bool { return a < b }),
	}
}

func (b *btreePriceSet) Insert(price int64) { b.tree.Set(price) }
func (b *btreePriceSet) Delete(price int64) { b.tree.Delete(price) }
func (b *btreePriceSet) Min() (int64, bool) { return b.tree.Min() }
func (b *btreePriceSet) Max() (int64, bool) { return b.tree.Max() }
func (b *btreePriceSet) Len() int           { return b.tree.Len() }

func (b *btreePriceSet) Ascend(fn func(price int64) bool) {
	b.tree.Scan(fn)
}

func (b *btreePriceSet) Descend(fn func(price int64) bool) {
	b.tree.Reverse(fn)
}

// NewRBTree builds the red-black-tree-flavored Index variant backed by
// tidwall/btree.
func NewRBTree(bounds Bounds, levelKind book.Kind) Index {
	return newTreeLevels(newBTreePriceSet, bounds, levelKind)
}
