// Package pq provides a binary min-heap ordered by a caller-supplied key.
package pq

// Heap is a min-heap of T ordered by key. It has no decrease-key: callers
// that need to lower a priority push a new entry and skip stale ones on Pop.
type Heap[T any] struct {
	items []T
	key   func(T) float64
}

// New returns an empty heap ordered by key.
func New[T any](key func(T) float64) *Heap[T] {
	return &Heap[T]{key: key}
}

func (h *Heap[T]) Len() int { return len(h.items) }

func (h *Heap[T]) Push(item T) {
	h.items = append(h.items, item)
	h.siftUp(len(h.items) - 1)
}

// Pop removes and returns the item with the smallest key. ok is false when
// the heap is empty.
func (h *Heap[T]) Pop() (item T, ok bool) {
	n := len(h.items)
	if n == 0 {
		return item, false
	}
	item = h.items[0]
	h.items[0] = h.items[n-1]
	var zero T
	h.items[n-1] = zero
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item, true
}

// Peek returns the item with the smallest key without removing it.
func (h *Heap[T]) Peek() (item T, ok bool) {
	if len(h.items) == 0 {
		return item, false
	}
	return h.items[0], true
}

// Reset empties the heap, keeping its capacity.
func (h *Heap[T]) Reset() {
	clear(h.items)
	h.items = h.items[:0]
}

func (h *Heap[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.key(h.items[parent]) <= h.key(h.items[i]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap[T]) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.key(h.items[left]) < h.key(h.items[smallest]) {
			smallest = left
		}
		if right < n && h.key(h.items[right]) < h.key(h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
