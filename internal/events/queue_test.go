package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriorityQueuePopsInRunAtOrder(t *testing.T) {
	pq := newPriorityQueue()
	now := time.Now()

	pq.push(Event{ID: "c", RunAt: now.Add(2 * time.Minute)})
	pq.push(Event{ID: "a", RunAt: now.Add(-time.Minute)})
	pq.push(Event{ID: "b", RunAt: now})

	first, ok := pq.popReady(now.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, "a", first.ID)

	second, ok := pq.popReady(now.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, "b", second.ID)

	_, ok = pq.popReady(now.Add(time.Hour))
	assert.True(t, ok)
}

func TestPriorityQueuePopReadyRespectsNotYetDue(t *testing.T) {
	pq := newPriorityQueue()
	now := time.Now()
	pq.push(Event{ID: "future", RunAt: now.Add(time.Hour)})

	_, ok := pq.popReady(now)
	assert.False(t, ok)

	_, ok = pq.popReady(now.Add(2 * time.Hour))
	assert.True(t, ok)
}
