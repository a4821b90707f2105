package events

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// Reenqueue is one follow-up event a Handler asks the Manager to schedule.
// RunAt defaults to "now" when zero, covering the "re-enqueue now" and
// "re-enqueue sequence of items" outcomes; a non-zero RunAt covers the
// "re-enqueue with cooldown" outcome.
type Reenqueue struct {
	ItemID string
	RunAt  time.Time
}

// TransientError marks a Handler failure as transient with a known
// cooldown (§7: "unless error is transient with a known cooldown"); the
// Manager re-enqueues the same item after Cooldown instead of routing it to
// Failed.
type TransientError struct {
	Err      error
	Cooldown time.Duration
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error  { return e.Err }

// Handler processes one item for the service named by an Event's
// EmittedBy/next-service routing and reports what should happen next.
type Handler func(ctx context.Context, itemID string) ([]Reenqueue, error)

// FailureSink is invoked when a Handler raises a non-transient error; it is
// the caller's hook to route the item to Failed (§4.9).
type FailureSink func(itemID string, err error)

// Manager is the Event Manager (§4.9/§5): a run_at-ordered priority queue
// dispatched onto a bounded worker pool, with at most one in-flight event
// per item_id.
type Manager struct {
	handler     Handler
	onFailure   FailureSink
	concurrency int

	mu         sync.Mutex
	queue      *priorityQueue
	inProgress map[string]struct{}
	deferred   []Event // events for an item already in progress

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(handler Handler, onFailure FailureSink, concurrency int) *Manager {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Manager{
		handler:     handler,
		onFailure:   onFailure,
		concurrency: concurrency,
		queue:       newPriorityQueue(),
		inProgress:  make(map[string]struct{}),
	}
}

// Enqueue schedules an event, to be dispatched once its RunAt is reached.
func (m *Manager) Enqueue(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue.push(e)
}

// Start begins the dispatch loop in the background.
func (m *Manager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.loop()
	log.Println("[events] event manager started")
}

// Stop cancels the dispatch loop and waits for in-flight work to drain.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	log.Println("[events] event manager stopped")
}

func (m *Manager) loop() {
	defer m.wg.Done()

	workers := pool.New().WithMaxGoroutines(m.concurrency)
	defer workers.Wait()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.dispatchReady(workers)
		}
	}
}

// dispatchReady pops every currently-due event and hands it to the pool,
// skipping (and re-queueing for later retry) any item already in flight.
func (m *Manager) dispatchReady(workers *pool.Pool) {
	now := time.Now()

	var toRun []Event
	m.mu.Lock()
	for {
		e, ok := m.queue.popReady(now)
		if !ok {
			break
		}
		if _, busy := m.inProgress[e.ItemID]; busy {
			m.deferred = append(m.deferred, e)
			continue
		}
		m.inProgress[e.ItemID] = struct{}{}
		toRun = append(toRun, e)
	}
	// Retry deferred events on the next tick by pushing them back in.
	for _, e := range m.deferred {
		m.queue.push(e)
	}
	m.deferred = m.deferred[:0]
	m.mu.Unlock()

	for _, e := range toRun {
		event := e
		workers.Go(func() { m.run(event) })
	}
}

func (m *Manager) run(e Event) {
	defer func() {
		m.mu.Lock()
		delete(m.inProgress, e.ItemID)
		m.mu.Unlock()
	}()

	followUps, err := m.handler(m.ctx, e.ItemID)
	if err != nil {
		var transient *TransientError
		if errors.As(err, &transient) {
			m.Enqueue(NewEvent(e.EmittedBy, e.ItemID, time.Now().Add(transient.Cooldown)))
			return
		}
		log.Printf("[events] item %s failed: %v", e.ItemID, err)
		if m.onFailure != nil {
			m.onFailure(e.ItemID, err)
		}
		return
	}

	for _, r := range followUps {
		m.Enqueue(NewEvent(e.EmittedBy, r.ItemID, r.RunAt))
	}
}
