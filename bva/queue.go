package bva

import "github.com/rhartert/yagh"

// litQueue orders literals by their effective occurrence count, largest
// first. Entries are keyed by literal slot, so a re-push simply re-keys the
// heap entry, and every popped entry carries the count it was pushed with:
// the engine compares it against the live count and skips stale entries.
type litQueue struct {
	heap *yagh.IntMap[int]

	// counts holds the count each queued literal slot was pushed with,
	// -1 when the slot is not queued.
	counts []int
}

func newLitQueue(capa int) *litQueue {
	if capa < 2 {
		capa = 2
	}
	q := &litQueue{
		heap:   yagh.New[int](capa),
		counts: make([]int, capa),
	}
	for i := range q.counts {
		q.counts[i] = -1
	}
	return q
}

func (q *litQueue) push(lit, count int) {
	li := litIndex(lit)
	if li >= len(q.counts) {
		q.grow(2 * (li + 1))
	}
	q.counts[li] = count
	q.heap.Put(li, -count)
}

// grow rebuilds the heap with a larger capacity, keeping the queued entries.
func (q *litQueue) grow(capa int) {
	heap := yagh.New[int](capa)
	counts := make([]int, capa)
	for i := range counts {
		counts[i] = -1
	}
	for li, count := range q.counts {
		if count >= 0 {
			heap.Put(li, -count)
			counts[li] = count
		}
	}
	q.heap = heap
	q.counts = counts
}

func (q *litQueue) pop() (lit, count int, ok bool) {
	entry, ok := q.heap.Pop()
	if !ok {
		return 0, 0, false
	}
	li := entry.Elem
	count = q.counts[li]
	q.counts[li] = -1
	return indexLiteral(li), count, true
}
