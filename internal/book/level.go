// Package book implements the FIFO bucket of resting orders at a single
// price on a single side — the innermost data structure of the limit
// order book.
//
// Two interchangeable implementations satisfy the Level interface so
// their performance can be compared: an insertion-ordered map keyed by
// order id (OrderedMapLevel) and a doubly-linked deque holding Order
// references directly (DequeLevel). Both preserve a resting order's
// queue position across partial fills and resizes — that is what gives
// price-time priority its exact replay fidelity.
package book

import (
	"container/list"

	"larkbook/internal/common"
)

// Level is the FIFO bucket contract every PriceLevel implementation
// must satisfy.
type Level interface {
	// Append places order at the tail and adds its size to the running
	// total. O(1) amortized.
	Append(order *common.Order)

	// First returns the head order, or nil if the level is empty.
	First() *common.Order

	// Last returns the tail order, or nil if the level is empty.
	Last() *common.Order

	// RemoveFirst drops the head order.
	RemoveFirst()

	// RemoveLast drops the tail order.
	RemoveLast()

	// Remove drops a named resting order. Implementations that keep a
	// back-pointer from the order to its container node achieve O(1);
	// the fallback is a linear scan over the level.
	Remove(order *common.Order)

	// Update mutates order's size by delta (may be negative) and
	// adjusts the level's running total. The order's FIFO position is
	// never changed — partial fills and resizes do not re-queue.
	Update(order *common.Order, delta float64)

	// IsEmpty reports whether the level holds no orders.
	IsEmpty() bool

	// Size is the cached sum of all resting order sizes in the level.
	Size() float64

	// Orders returns the resting orders head-to-tail. Used by snapshot
	// and test-introspection paths; not on the matching hot path.
	Orders() []*common.Order
}

// OrderedMapLevel is an insertion-ordered map keyed by order id. Cancel
// resolves the order's container node through a per-level id index, so
// it costs one map lookup plus the O(1) list unlink.
type OrderedMapLevel struct {
	size  float64
	index map[uint64]*list.Element
	order *list.List
}

// NewOrderedMapLevel constructs an empty OrderedMapLevel.
func NewOrderedMapLevel() *OrderedMapLevel {
	return &OrderedMapLevel{
		index: make(map[uint64]*list.Element),
		order: list.New(),
	}
}

func (l *OrderedMapLevel) Append(order *common.Order) {
	el := l.order.PushBack(order)
	l.index[order.OrderID] = el
	l.size += order.Size
}

func (l *OrderedMapLevel) First() *common.Order {
	if el := l.order.Front(); el != nil {
		return el.Value.(*common.Order)
	}
	return nil
}

func (l *OrderedMapLevel) Last() *common.Order {
	if el := l.order.Back(); el != nil {
		return el.Value.(*common.Order)
	}
	return nil
}

func (l *OrderedMapLevel) RemoveFirst() {
	el := l.order.Front()
	if el == nil {
		return
	}
	order := el.Value.(*common.Order)
	l.order.Remove(el)
	delete(l.index, order.OrderID)
	l.size -= order.Size
}

func (l *OrderedMapLevel) RemoveLast() {
	el := l.order.Back()
	if el == nil {
		return
	}
	order := el.Value.(*common.Order)
	l.order.Remove(el)
	delete(l.index, order.OrderID)
	l.size -= order.Size
}

func (l *OrderedMapLevel) Remove(order *common.Order) {
	el, ok := l.index[order.OrderID]
	if !ok {
		return
	}
	l.order.Remove(el)
	delete(l.index, order.OrderID)
	l.size -= order.Size
}

func (l *OrderedMapLevel) Update(order *common.Order, delta float64) {
	order.Size += delta
	l.size += delta
}

func (l *OrderedMapLevel) IsEmpty() bool { return l.order.Len() == 0 }

func (l *OrderedMapLevel) Size() float64 { return l.size }

func (l *OrderedMapLevel) Orders() []*common.Order {
	orders := make([]*common.Order, 0, l.order.Len())
	for el := l.order.Front(); el != nil; el = el.Next() {
		orders = append(orders, el.Value.(*common.Order))
	}
	return orders
}

// DequeLevel is a doubly-linked deque holding Order references
// directly, keyed by pointer identity rather than order id. The cancel
// path already holds the *common.Order from the OrderBook's order
// index, so removal never needs an id lookup — a single map-by-pointer
// hit reaches the list node directly.
type DequeLevel struct {
	size    float64
	handles map[*common.Order]*list.Element
	order   *list.List
}

// NewDequeLevel constructs an empty DequeLevel.
func NewDequeLevel() *DequeLevel {
	return &DequeLevel{
		handles: make(map[*common.Order]*list.Element),
		order:   list.New(),
	}
}

func (l *DequeLevel) Append(order *common.Order) {
	el := l.order.PushBack(order)
	l.handles[order] = el
	l.size += order.Size
}

func (l *DequeLevel) First() *common.Order {
	if el := l.order.Front(); el != nil {
		return el.Value.(*common.Order)
	}
	return nil
}

func (l *DequeLevel) Last() *common.Order {
	if el := l.order.Back(); el != nil {
		return el.Value.(*common.Order)
	}
	return nil
}

func (l *DequeLevel) RemoveFirst() {
	el := l.order.Front()
	if el == nil {
		return
	}
	order := el.Value.(*common.Order)
	l.order.Remove(el)
	delete(l.handles, order)
	l.size -= order.Size
}

func (l *DequeLevel) RemoveLast() {
	el := l.order.Back()
	if el == nil {
		return
	}
	order := el.Value.(*common.Order)
	l.order.Remove(el)
	delete(l.handles, order)
	l.size -= order.Size
}

func (l *DequeLevel) Remove(order *common.Order) {
	el, ok := l.handles[order]
	if !ok {
		return
	}
	l.order.Remove(el)
	delete(l.handles, order)
	l.size -= order.Size
}

func (l *DequeLevel) Update(order *common.Order, delta float64) {
	order.Size += delta
	l.size += delta
}

func (l *DequeLevel) IsEmpty() bool { return l.order.Len() == 0 }

func (l *DequeLevel) Size() float64 { return l.size }

func (l *DequeLevel) Orders() []*common.Order {
	orders := make([]*common.Order, 0, l.order.Len())
	for el := l.order.Front(); el != nil; el = el.Next() {
		orders = append(orders, el.Value.(*common.Order))
	}
	return orders
}

// Kind names the Level implementation choices PriceLevels can build.
type Kind string

const (
	KindOrderedMap Kind = "ordered_map"
	KindDeque      Kind = "deque"
)

// New constructs a fresh, empty Level of the given kind.
func New(kind Kind) Level {
	switch kind {
	case KindDeque:
		return NewDequeLevel()
	default:
		return NewOrderedMapLevel()
	}
}
