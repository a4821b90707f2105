package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novastream/models"
)

type countingProvider struct {
	calls  int
	record Record
}

func (p *countingProvider) Resolve(context.Context, string, models.ItemType) (Record, error) {
	p.calls++
	return p.record, nil
}

func TestCachingProviderServesRepeatLookupsFromCache(t *testing.T) {
	inner := &countingProvider{record: Record{Title: "Dark", Year: 2017, EpisodeCounts: map[int]int{1: 10}}}
	cached, err := NewCachingProvider(inner, 4, time.Hour)
	require.NoError(t, err)

	rec1, err := cached.Resolve(context.Background(), "tt123", models.ItemShow)
	require.NoError(t, err)
	rec2, err := cached.Resolve(context.Background(), "tt123", models.ItemShow)
	require.NoError(t, err)

	assert.Equal(t, rec1, rec2)
	assert.Equal(t, 1, inner.calls)
}

func TestCachingProviderRefetchesAfterTTLExpires(t *testing.T) {
	inner := &countingProvider{record: Record{Title: "Dark"}}
	cached, err := NewCachingProvider(inner, 4, time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	cached.now = func() time.Time { return start }
	_, err = cached.Resolve(context.Background(), "tt123", models.ItemShow)
	require.NoError(t, err)

	cached.now = func() time.Time { return start.Add(time.Hour) }
	_, err = cached.Resolve(context.Background(), "tt123", models.ItemShow)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestEpisodeCountAdapterReadsSeasonFromResolvedShow(t *testing.T) {
	inner := &countingProvider{record: Record{EpisodeCounts: map[int]int{1: 8, 2: 10}}}
	adapter := EpisodeCountAdapter{Provider: inner}

	count, err := adapter.EpisodeCount(context.Background(), &models.Item{ID: "show-1", ImdbID: "tt123"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}
