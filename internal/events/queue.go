// Package events implements the §4.9 Event Manager: a run_at-ordered
// priority queue, a bounded worker pool, and the "one in-flight event per
// item_id" serialization rule (§5). Modeled in the teacher's
// services/scheduler/service.go idiom (a Service with Start/Stop, an
// internal goroutine loop, sync.RWMutex-guarded state) but backed by a
// container/heap priority queue, which the Manager loop polls every 250ms
// for due events, since events carry individual run_at times rather than
// all firing on one cadence.
package events

import (
	"container/heap"
	"time"

	"github.com/google/uuid"
)

// Event is one scheduled invocation of a service against an item.
type Event struct {
	ID        string
	ItemID    string
	EmittedBy string
	RunAt     time.Time

	index int // heap bookkeeping
}

// NewEvent constructs an Event with a fresh ID, defaulting RunAt to now.
func NewEvent(emittedBy, itemID string, runAt time.Time) Event {
	if runAt.IsZero() {
		runAt = time.Now()
	}
	return Event{ID: uuid.NewString(), ItemID: itemID, EmittedBy: emittedBy, RunAt: runAt}
}

// eventHeap is a container/heap min-heap ordered by RunAt.
type eventHeap []*Event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].RunAt.Before(h[j].RunAt) }
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// priorityQueue wraps eventHeap behind a non-pointer-receiver-friendly API;
// not safe for concurrent use on its own (the Manager guards it with a mutex).
type priorityQueue struct {
	h eventHeap
}

func newPriorityQueue() *priorityQueue {
	pq := &priorityQueue{}
	heap.Init(&pq.h)
	return pq
}

func (pq *priorityQueue) push(e Event) {
	heap.Push(&pq.h, &e)
}

// popReady returns the earliest event if it is due (RunAt <= now), removing
// it from the queue.
func (pq *priorityQueue) popReady(now time.Time) (Event, bool) {
	if pq.h.Len() == 0 {
		return Event{}, false
	}
	if pq.h[0].RunAt.After(now) {
		return Event{}, false
	}
	e := heap.Pop(&pq.h).(*Event)
	return *e, true
}

// nextRunAt returns the earliest scheduled time still in the queue. The
// Manager loop does not call it; it polls popReady on a fixed 250ms ticker.
func (pq *priorityQueue) nextRunAt() (time.Time, bool) {
	if pq.h.Len() == 0 {
		return time.Time{}, false
	}
	return pq.h[0].RunAt, true
}

func (pq *priorityQueue) len() int { return pq.h.Len() }
