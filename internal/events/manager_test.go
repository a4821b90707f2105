package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerDispatchesReadyEvent(t *testing.T) {
	var mu sync.Mutex
	var processed []string
	done := make(chan struct{})

	handler := func(_ context.Context, itemID string) ([]Reenqueue, error) {
		mu.Lock()
		processed = append(processed, itemID)
		n := len(processed)
		mu.Unlock()
		if n == 1 {
			close(done)
		}
		return nil, nil
	}

	mgr := NewManager(handler, nil, 2)
	mgr.Start(context.Background())
	defer mgr.Stop()

	mgr.Enqueue(NewEvent("scraper", "item-1", time.Time{}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not dispatched in time")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"item-1"}, processed)
}

func TestManagerRoutesNonTransientFailureToSink(t *testing.T) {
	failed := make(chan string, 1)
	handler := func(context.Context, string) ([]Reenqueue, error) {
		return nil, errors.New("boom")
	}
	sink := func(itemID string, _ error) { failed <- itemID }

	mgr := NewManager(handler, sink, 1)
	mgr.Start(context.Background())
	defer mgr.Stop()

	mgr.Enqueue(NewEvent("scraper", "item-2", time.Time{}))

	select {
	case itemID := <-failed:
		assert.Equal(t, "item-2", itemID)
	case <-time.After(2 * time.Second):
		t.Fatal("failure was not routed to the sink in time")
	}
}

func TestManagerReenqueuesTransientFailureAfterCooldown(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	succeeded := make(chan struct{})

	handler := func(context.Context, string) ([]Reenqueue, error) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			return nil, &TransientError{Err: errors.New("rate limited"), Cooldown: 10 * time.Millisecond}
		}
		close(succeeded)
		return nil, nil
	}

	mgr := NewManager(handler, nil, 1)
	mgr.Start(context.Background())
	defer mgr.Stop()

	mgr.Enqueue(NewEvent("scraper", "item-3", time.Time{}))

	select {
	case <-succeeded:
	case <-time.After(2 * time.Second):
		t.Fatal("item was not retried after its transient cooldown")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, attempts, 2)
}
