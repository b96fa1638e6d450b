package levels

import "larkbook/internal/book"

// VariantKind names the four interchangeable PriceLevels
// implementations the matching engine can be constructed with.
type VariantKind string

const (
	VariantSortedMap VariantKind = "sorted_map"
	VariantRBTree     VariantKind = "rbtree"
	VariantAVLTree    VariantKind = "avltree"
	VariantArray      VariantKind = "array"
)

// New builds the requested Index variant. The tree variants use bounds
// only as an optional price-range check; the array variant requires
// bounds to be enabled and derives its allocation size from
// bounds.Min/bounds.Max. New panics if an array variant is requested
// with bounds disabled.
func New(kind VariantKind, bounds Bounds, levelKind book.Kind) Index {
	switch kind {
	case VariantRBTree:
		return NewRBTree(bounds, levelKind)
	case VariantAVLTree:
		return NewAVLTree(bounds, levelKind)
	case VariantArray:
		if !bounds.Enabled {
			panic("levels: array variant requires bounds")
		}
		return NewArrayLevels(bounds.Min, bounds.Max, levelKind)
	default:
		return NewSortedMap(bounds, levelKind)
	}
}
