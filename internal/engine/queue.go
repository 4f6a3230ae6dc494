package engine

import (
	"container/heap"
	"time"

	"github.com/roach88/deltasim/internal/value"
)

// EventKind distinguishes delta events from delayed events.
type EventKind int

const (
	// EventDelta is due within the current instant.
	EventDelta EventKind = iota + 1
	// EventDelayed is due at a later simulation time.
	EventDelayed
)

func (k EventKind) String() string {
	switch k {
	case EventDelta:
		return "delta"
	case EventDelayed:
		return "delayed"
	default:
		return "unknown"
	}
}

// Computation produces the value an event assigns. It runs when the event is
// applied, not when it is scheduled.
type Computation func() (value.Value, error)

// Constant wraps a fixed value as a Computation.
func Constant(v value.Value) Computation {
	return func() (value.Value, error) { return v, nil }
}

// Event is a transient scheduling record. It is created by a scheduling call,
// consumed exactly once and never mutated after creation.
type Event struct {
	Target  *Signal
	Compute Computation
	Time    time.Duration
	Kind    EventKind
	Seq     int64 // insertion sequence, the tie-breaker
	Delta   int   // delta-cycle number within its instant
}

// deltaQueue is the FIFO queue of events for the current instant.
//
// The queue is unbounded so that cascading propagation can append
// arbitrarily many events while it is being drained.
type deltaQueue struct {
	events []Event
}

func newDeltaQueue() *deltaQueue {
	return &deltaQueue{events: make([]Event, 0, 64)}
}

func (q *deltaQueue) Enqueue(e Event) {
	q.events = append(q.events, e)
}

// TryDequeue removes and returns the front event.
// Returns (Event{}, false) if the queue is empty.
func (q *deltaQueue) TryDequeue() (Event, bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]

	// Clear the slot so the backing array does not pin the event's closure.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

func (q *deltaQueue) Len() int { return len(q.events) }

func (q *deltaQueue) Clear() {
	clear(q.events)
	q.events = q.events[:0]
}

// eventHeap orders delayed events by (time, seq).
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Seq < h[j].Seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = Event{}
	*h = old[:n-1]
	return e
}

// delayedQueue is the time-ordered queue of future events.
type delayedQueue struct {
	h eventHeap
}

func newDelayedQueue() *delayedQueue {
	return &delayedQueue{}
}

func (q *delayedQueue) Push(e Event) {
	heap.Push(&q.h, e)
}

// Peek returns the earliest event without removing it.
func (q *delayedQueue) Peek() (Event, bool) {
	if len(q.h) == 0 {
		return Event{}, false
	}
	return q.h[0], true
}

// PopDue removes and returns, in (time, seq) order, every event due at t.
func (q *delayedQueue) PopDue(t time.Duration) []Event {
	var due []Event
	for len(q.h) > 0 && q.h[0].Time == t {
		due = append(due, heap.Pop(&q.h).(Event))
	}
	return due
}

// RemoveIf drops every event for which drop returns true.
func (q *delayedQueue) RemoveIf(drop func(Event) bool) int {
	kept := q.h[:0]
	removed := 0
	for _, e := range q.h {
		if drop(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(q.h[len(kept):])
	q.h = kept
	heap.Init(&q.h)
	return removed
}

func (q *delayedQueue) Len() int { return len(q.h) }

func (q *delayedQueue) Clear() {
	clear(q.h)
	q.h = q.h[:0]
}
