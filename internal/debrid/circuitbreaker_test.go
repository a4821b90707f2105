package debrid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novastream/models"
)

type fakeProvider struct {
	name string
	err  error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) InstantAvailability(context.Context, string, models.ItemType) (*models.TorrentContainer, error) {
	return nil, f.err
}
func (f *fakeProvider) AddTorrent(context.Context, string) (string, error)    { return "id", f.err }
func (f *fakeProvider) GetTorrentInfo(context.Context, string) (*models.TorrentContainer, error) {
	return nil, f.err
}
func (f *fakeProvider) SelectFiles(context.Context, string, []string) error { return f.err }
func (f *fakeProvider) DeleteTorrent(context.Context, string) error        { return nil }
func (f *fakeProvider) GetDownloads(context.Context) ([]DownloadEntry, error) { return nil, f.err }
func (f *fakeProvider) GetUserInfo(context.Context) (*UserInfo, error)      { return nil, f.err }

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &fakeProvider{name: "test", err: errors.New("boom")}
	cb := NewCircuitBreaker(inner)
	cb.Threshold = 2
	cb.Cooldown = time.Minute

	_, err := cb.AddTorrent(context.Background(), "aaaa")
	require.Error(t, err)
	assert.False(t, cb.Open())

	_, err = cb.AddTorrent(context.Background(), "aaaa")
	require.Error(t, err)
	assert.True(t, cb.Open())

	_, err = cb.AddTorrent(context.Background(), "aaaa")
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestCircuitBreakerNotCachedDoesNotCountAsFailure(t *testing.T) {
	inner := &fakeProvider{name: "test", err: ErrNotCached}
	cb := NewCircuitBreaker(inner)
	cb.Threshold = 1

	_, err := cb.InstantAvailability(context.Background(), "aaaa", models.ItemMovie)
	assert.ErrorIs(t, err, ErrNotCached)
	assert.False(t, cb.Open())
}

func TestCircuitBreakerRecoversOnSuccess(t *testing.T) {
	inner := &fakeProvider{name: "test"}
	cb := NewCircuitBreaker(inner)
	cb.Threshold = 1
	cb.Cooldown = time.Millisecond

	inner.err = errors.New("boom")
	_, _ = cb.AddTorrent(context.Background(), "aaaa")
	assert.True(t, cb.Open())

	time.Sleep(5 * time.Millisecond)
	inner.err = nil
	_, err := cb.AddTorrent(context.Background(), "aaaa")
	require.NoError(t, err)
	assert.False(t, cb.Open())
}
