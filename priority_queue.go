package prioexec

// priorityQueue is a max-heap ordered by cmp.
//
// Elements that change rank while queued break the heap invariant; the
// owner must call heap.Init before the next pop to restore ordering.
type priorityQueue[T any] struct {
	items []T
	cmp   func(a, b T) int
}

func (pq *priorityQueue[T]) Len() int { return len(pq.items) }
func (pq *priorityQueue[T]) Less(i, j int) bool {
	return pq.cmp(pq.items[i], pq.items[j]) > 0 // max-heap
}
func (pq *priorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *priorityQueue[T]) Push(x any) {
	pq.items = append(pq.items, x.(T))
}

func (pq *priorityQueue[T]) Pop() any {
	old := pq.items
	n := len(old)
	it := old[n-1]
	var zero T
	old[n-1] = zero
	pq.items = old[:n-1]
	return it
}

func (pq *priorityQueue[T]) reset() {
	clear(pq.items)
	pq.items = pq.items[:0]
}
