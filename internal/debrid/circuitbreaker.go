package debrid

import (
	"context"
	"sync"
	"time"

	"novastream/models"
)

// CircuitBreaker wraps a Provider with a per-provider cooldown, grounded on
// the original source's `_service_cooldowns` dict and the teacher's
// trackCache/mutex idiom in services/debrid/health.go. It does not retry
// internally; it records the cooldown and surfaces ErrCircuitBreakerOpen so
// callers (the Download Orchestrator) can apply §4.3's "do not blacklist on
// provider-wide cooldown" rule.
type CircuitBreaker struct {
	inner Provider

	mu            sync.Mutex
	cooldownUntil time.Time
	consecutive   int

	// Threshold is the number of consecutive failures before opening the
	// breaker; Cooldown is the resulting delay (§5: "60-second cooldown").
	Threshold int
	Cooldown  time.Duration

	now func() time.Time
}

func NewCircuitBreaker(inner Provider) *CircuitBreaker {
	return &CircuitBreaker{
		inner:     inner,
		Threshold: 3,
		Cooldown:  60 * time.Second,
		now:       time.Now,
	}
}

func (b *CircuitBreaker) Name() string { return b.inner.Name() }

// Open reports whether the breaker is currently cooling down.
func (b *CircuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Before(b.cooldownUntil)
}

// CooldownUntil returns the timestamp the breaker will next allow requests,
// used by the orchestrator to compute the earliest re-dispatch time (§4.3
// termination: "yield (item, earliest_cooldown_end)").
func (b *CircuitBreaker) CooldownUntil() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cooldownUntil
}

func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive++
	if b.consecutive >= b.Threshold {
		b.cooldownUntil = b.now().Add(b.Cooldown)
	}
}

func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutive = 0
	b.cooldownUntil = time.Time{}
}

func (b *CircuitBreaker) guard() error {
	if b.Open() {
		return ErrCircuitBreakerOpen
	}
	return nil
}

func (b *CircuitBreaker) InstantAvailability(ctx context.Context, infohash string, itemType models.ItemType) (*models.TorrentContainer, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	c, err := b.inner.InstantAvailability(ctx, infohash, itemType)
	b.record(err)
	return c, err
}

func (b *CircuitBreaker) AddTorrent(ctx context.Context, infohash string) (string, error) {
	if err := b.guard(); err != nil {
		return "", err
	}
	id, err := b.inner.AddTorrent(ctx, infohash)
	b.record(err)
	return id, err
}

func (b *CircuitBreaker) GetTorrentInfo(ctx context.Context, torrentID string) (*models.TorrentContainer, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	c, err := b.inner.GetTorrentInfo(ctx, torrentID)
	b.record(err)
	return c, err
}

func (b *CircuitBreaker) SelectFiles(ctx context.Context, torrentID string, fileIDs []string) error {
	if err := b.guard(); err != nil {
		return err
	}
	err := b.inner.SelectFiles(ctx, torrentID, fileIDs)
	b.record(err)
	return err
}

func (b *CircuitBreaker) DeleteTorrent(ctx context.Context, torrentID string) error {
	// Deletes are best-effort cleanup (§4.3); never gated by the breaker.
	return b.inner.DeleteTorrent(ctx, torrentID)
}

func (b *CircuitBreaker) GetDownloads(ctx context.Context) ([]DownloadEntry, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	d, err := b.inner.GetDownloads(ctx)
	b.record(err)
	return d, err
}

func (b *CircuitBreaker) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	if err := b.guard(); err != nil {
		return nil, err
	}
	u, err := b.inner.GetUserInfo(ctx)
	b.record(err)
	return u, err
}

func (b *CircuitBreaker) record(err error) {
	if err == nil {
		b.recordSuccess()
		return
	}
	if err == ErrNotCached {
		// Not-cached is an expected outcome, not a provider failure.
		return
	}
	b.recordFailure()
}

var _ Provider = (*CircuitBreaker)(nil)
