package book

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"larkbook/internal/common"
)

func newTestOrder(id uint64, size float64) *common.Order {
	return &common.Order{OrderID: id, Side: common.Buy, Price: 100, Size: size, TraderID: 1}
}

func testLevelKinds() []Kind {
	return []Kind{KindOrderedMap, KindDeque}
}

func TestLevel_AppendPreservesFIFOOrder(t *testing.T) {
	for _, kind := range testLevelKinds() {
		lvl := New(kind)
		lvl.Append(newTestOrder(1, 10))
		lvl.Append(newTestOrder(2, 20))
		lvl.Append(newTestOrder(3, 30))

		assert.Equal(t, uint64(1), lvl.First().OrderID, "kind=%s", kind)
		assert.Equal(t, uint64(3), lvl.Last().OrderID, "kind=%s", kind)
		assert.InDelta(t, 60.0, lvl.Size(), 1e-9, "kind=%s", kind)

		ids := make([]uint64, 0, 3)
		for _, o := range lvl.Orders() {
			ids = append(ids, o.OrderID)
		}
		assert.Equal(t, []uint64{1, 2, 3}, ids, "kind=%s", kind)
	}
}

func TestLevel_RemoveFirstAdjustsSize(t *testing.T) {
	for _, kind := range testLevelKinds() {
		lvl := New(kind)
		lvl.Append(newTestOrder(1, 10))
		lvl.Append(newTestOrder(2, 20))

		lvl.RemoveFirst()
		assert.Equal(t, uint64(2), lvl.First().OrderID, "kind=%s", kind)
		assert.InDelta(t, 20.0, lvl.Size(), 1e-9, "kind=%s", kind)
	}
}

func TestLevel_RemoveByHandle(t *testing.T) {
	for _, kind := range testLevelKinds() {
		lvl := New(kind)
		o1 := newTestOrder(1, 10)
		o2 := newTestOrder(2, 20)
		o3 := newTestOrder(3, 30)
		lvl.Append(o1)
		lvl.Append(o2)
		lvl.Append(o3)

		lvl.Remove(o2)
		assert.InDelta(t, 40.0, lvl.Size(), 1e-9, "kind=%s", kind)

		ids := make([]uint64, 0, 2)
		for _, o := range lvl.Orders() {
			ids = append(ids, o.OrderID)
		}
		assert.Equal(t, []uint64{1, 3}, ids, "kind=%s", kind)
	}
}

func TestLevel_UpdatePreservesQueuePosition(t *testing.T) {
	for _, kind := range testLevelKinds() {
		lvl := New(kind)
		o1 := newTestOrder(1, 10)
		o2 := newTestOrder(2, 20)
		lvl.Append(o1)
		lvl.Append(o2)

		lvl.Update(o1, 5)
		assert.InDelta(t, 15.0, o1.Size, 1e-9, "kind=%s", kind)
		assert.InDelta(t, 35.0, lvl.Size(), 1e-9, "kind=%s", kind)
		// o1 stays at the head: enlarging a resting order never re-queues it.
		assert.Equal(t, uint64(1), lvl.First().OrderID, "kind=%s", kind)
	}
}

func TestLevel_IsEmpty(t *testing.T) {
	for _, kind := range testLevelKinds() {
		lvl := New(kind)
		assert.True(t, lvl.IsEmpty(), "kind=%s", kind)
		lvl.Append(newTestOrder(1, 10))
		assert.False(t, lvl.IsEmpty(), "kind=%s", kind)
		lvl.RemoveFirst()
		assert.True(t, lvl.IsEmpty(), "kind=%s", kind)
	}
}

func TestLevel_RemoveFirstOnEmptyIsNoop(t *testing.T) {
	for _, kind := range testLevelKinds() {
		lvl := New(kind)
		assert.NotPanics(t, func() { lvl.RemoveFirst() }, "kind=%s", kind)
		assert.NotPanics(t, func() { lvl.RemoveLast() }, "kind=%s", kind)
	}
}
