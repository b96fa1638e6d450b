package levels

import "larkbook/internal/book"

// NewSortedMap builds the "sorted dict" Index variant: an ascending
// slice per side with binary-search insert/delete. This is the
// low-constant-factor baseline every other variant is benchmarked
// against.
func NewSortedMap(bounds Bounds, levelKind book.Kind) Index {
	return newTreeLevels(func() priceSet { return newSortedSlicePriceSet() }, bounds, levelKind)
}
