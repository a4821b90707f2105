package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novastream/models"
)

func TestItemStorePutAndGetRoundTrips(t *testing.T) {
	s, err := NewItemStore(t.TempDir())
	require.NoError(t, err)

	item := &models.Item{ID: "movie-1", Type: models.ItemMovie, ImdbID: "tt123", Title: "Heat"}
	require.NoError(t, s.Put(item))

	got, ok := s.Get("movie-1")
	require.True(t, ok)
	assert.Equal(t, "Heat", got.Title)
}

func TestItemStoreFindByCanonicalID(t *testing.T) {
	s, err := NewItemStore(t.TempDir())
	require.NoError(t, err)

	item := &models.Item{ID: "movie-1", Type: models.ItemMovie, TmdbID: "597"}
	require.NoError(t, s.Put(item))

	got, ok := s.FindByCanonicalID("597")
	require.True(t, ok)
	assert.Equal(t, "movie-1", got.ID)

	_, ok = s.FindByCanonicalID("does-not-exist")
	assert.False(t, ok)
}

func TestItemStorePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewItemStore(dir)
	require.NoError(t, err)
	require.NoError(t, s1.Put(&models.Item{ID: "movie-1", Type: models.ItemMovie, Title: "Heat"}))

	s2, err := NewItemStore(dir)
	require.NoError(t, err)

	got, ok := s2.Get("movie-1")
	require.True(t, ok)
	assert.Equal(t, "Heat", got.Title)
}

func TestItemStoreChildrenPreservesParentOrder(t *testing.T) {
	s, err := NewItemStore(t.TempDir())
	require.NoError(t, err)

	parent := &models.Item{ID: "season-1", Type: models.ItemSeason, Children: []string{"ep-2", "ep-1"}}
	require.NoError(t, s.Put(parent))
	require.NoError(t, s.Put(&models.Item{ID: "ep-1", Type: models.ItemEpisode, EpisodeNumber: 1}))
	require.NoError(t, s.Put(&models.Item{ID: "ep-2", Type: models.ItemEpisode, EpisodeNumber: 2}))

	children := s.Children(parent)
	require.Len(t, children, 2)
	assert.Equal(t, "ep-2", children[0].ID)
	assert.Equal(t, "ep-1", children[1].ID)
}
