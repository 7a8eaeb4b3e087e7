package batch

import "sync"

// eventQueue is an unbounded FIFO between the run goroutine (producer) and
// whoever polls it (consumer). Drain never blocks and hands back everything
// pushed so far, in push order.
type eventQueue[T any] struct {
	mu    sync.Mutex
	items []T
}

func (q *eventQueue[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

func (q *eventQueue[T]) drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
