// Package heap provides a binary heap whose elements track their own position,
// so a caller can re-prioritize an element in O(log n) without searching for it.
package heap

import "errors"

// ErrUnderflow is returned when reading from an empty heap.
var ErrUnderflow = errors.New("heap underflow")

// Element is the contract for values stored in a Heap.
//
// The heap calls SetHeapSlot whenever it moves an element, so that for every
// element e in heap h, h.At(e.HeapSlot()) == e holds at all times.
type Element[T any] interface {
	Compare(other T) int
	HeapSlot() int
	SetHeapSlot(slot int)
}

// Heap is an indexed binary heap. The zero value is not usable; use NewMin,
// NewMax, MinFrom or MaxFrom.
type Heap[T Element[T]] struct {
	items []T
	// before reports whether a belongs above b.
	before func(a, b T) bool
}

func smaller[T Element[T]](a, b T) bool { return a.Compare(b) < 0 }
func larger[T Element[T]](a, b T) bool  { return a.Compare(b) > 0 }

// NewMin returns an empty min-heap: the smallest element is at the top.
func NewMin[T Element[T]]() *Heap[T] {
	return &Heap[T]{before: smaller[T]}
}

// NewMax returns an empty max-heap: the largest element is at the top.
func NewMax[T Element[T]]() *Heap[T] {
	return &Heap[T]{before: larger[T]}
}

// MinFrom builds a min-heap over items in O(n). The heap takes ownership of the slice.
func MinFrom[T Element[T]](items []T) *Heap[T] {
	h := &Heap[T]{items: items, before: smaller[T]}
	h.init()
	return h
}

// MaxFrom builds a max-heap over items in O(n). The heap takes ownership of the slice.
func MaxFrom[T Element[T]](items []T) *Heap[T] {
	h := &Heap[T]{items: items, before: larger[T]}
	h.init()
	return h
}

// init assigns slots and heapifies every internal node, last parent first.
func (h *Heap[T]) init() {
	for i, e := range h.items {
		e.SetHeapSlot(i)
	}
	for i := len(h.items)/2 - 1; i >= 0; i-- {
		h.down(i)
	}
}

// Len returns the number of elements.
func (h *Heap[T]) Len() int {
	return len(h.items)
}

// At returns the element stored in slot i.
func (h *Heap[T]) At(i int) T {
	return h.items[i]
}

// Top returns the top element without removing it.
func (h *Heap[T]) Top() (T, error) {
	if len(h.items) == 0 {
		var zero T
		return zero, ErrUnderflow
	}
	return h.items[0], nil
}

// Insert appends e and sifts it up. O(log n).
func (h *Heap[T]) Insert(e T) {
	h.items = append(h.items, e)
	i := len(h.items) - 1
	e.SetHeapSlot(i)
	h.up(i)
}

// ExtractTop removes and returns the top element. O(log n).
func (h *Heap[T]) ExtractTop() (T, error) {
	n := len(h.items)
	if n == 0 {
		var zero T
		return zero, ErrUnderflow
	}

	top := h.items[0]
	last := n - 1
	h.items[0] = h.items[last]
	h.items[0].SetHeapSlot(0)

	var zero T
	h.items[last] = zero
	h.items = h.items[:last]

	if last > 0 {
		h.down(0)
	}
	top.SetHeapSlot(-1)
	return top, nil
}

// Update stores e in slot and restores the heap order around it, first
// downward and then upward. Call it after e's key has changed. O(log n).
func (h *Heap[T]) Update(slot int, e T) {
	h.items[slot] = e
	e.SetHeapSlot(slot)
	if h.down(slot) {
		return
	}
	h.up(slot)
}

// Fix is Update at e's own slot.
func (h *Heap[T]) Fix(e T) {
	h.Update(e.HeapSlot(), e)
}

func (h *Heap[T]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].SetHeapSlot(i)
	h.items[j].SetHeapSlot(j)
}

func (h *Heap[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.before(h.items[i], h.items[parent]) {
			return
		}
		h.swap(i, parent)
		i = parent
	}
}

// down sifts slot i toward the leaves and reports whether it moved.
func (h *Heap[T]) down(i int) bool {
	start := i
	n := len(h.items)
	for {
		move := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.before(h.items[left], h.items[move]) {
			move = left
		}
		if right < n && h.before(h.items[right], h.items[move]) {
			move = right
		}
		if move == i {
			return i != start
		}
		h.swap(i, move)
		i = move
	}
}
