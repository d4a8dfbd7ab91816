package backtest

import "container/heap"

// queuedEvent carries the explicit tie-break tuple: events are ordered by
// (timestamp, kind priority, insertion sequence). The sequence number makes
// ties deterministic regardless of heap internals, which Go's container/heap
// does not guarantee to be stable.
type queuedEvent struct {
	ev  Event
	seq uint64
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if !a.ev.Time.Equal(b.ev.Time) {
		return a.ev.Time.Before(b.ev.Time)
	}
	if a.ev.Kind != b.ev.Kind {
		return a.ev.Kind < b.ev.Kind
	}
	return a.seq < b.seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(queuedEvent)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// eventQueue is a binary heap of events with a monotonically increasing
// insertion counter.
type eventQueue struct {
	h   eventHeap
	seq uint64
}

func newEventQueue() *eventQueue {
	q := &eventQueue{h: make(eventHeap, 0, 64)}
	heap.Init(&q.h)
	return q
}

func (q *eventQueue) push(ev Event) {
	q.seq++
	heap.Push(&q.h, queuedEvent{ev: ev, seq: q.seq})
}

func (q *eventQueue) pop() (Event, bool) {
	if len(q.h) == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.h).(queuedEvent).ev, true
}

func (q *eventQueue) len() int { return len(q.h) }
