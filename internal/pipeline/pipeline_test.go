package pipeline

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novastream/internal/store"
	"novastream/internal/vfs"
	"novastream/models"
)

func newStore(t *testing.T, items ...*models.Item) *store.ItemStore {
	t.Helper()
	s, err := store.NewItemStore(t.TempDir())
	require.NoError(t, err)
	for _, item := range items {
		require.NoError(t, s.Put(item))
	}
	return s
}

func TestDeriveStateReportsSymlinkedOnFullyDownloadedUnvalidatedSeason(t *testing.T) {
	season := &models.Item{ID: "season-1", Type: models.ItemSeason, Children: []string{"ep-1"}}
	ep := &models.Item{
		ID: "ep-1", Type: models.ItemEpisode, ParentID: "season-1",
		FilesystemEntries: []models.MediaEntry{{InfoHash: "h1", VFSPaths: []string{"/lib/ep1.mkv"}}},
	}
	p := &Pipeline{Store: newStore(t, season, ep)}

	assert.Equal(t, models.StateSymlinked, p.deriveState(season))
}

func TestDeriveStateReportsCompletedOnceSeasonValidatedAtIsStamped(t *testing.T) {
	now := time.Now()
	season := &models.Item{ID: "season-1", Type: models.ItemSeason, Children: []string{"ep-1"}, ValidatedAt: &now}
	ep := &models.Item{
		ID: "ep-1", Type: models.ItemEpisode, ParentID: "season-1",
		FilesystemEntries: []models.MediaEntry{{InfoHash: "h1", VFSPaths: []string{"/lib/ep1.mkv"}}},
	}
	p := &Pipeline{Store: newStore(t, season, ep)}

	assert.Equal(t, models.StateCompleted, p.deriveState(season))
}

func TestDeriveStateOnLeafNeverConsultsValidatedAt(t *testing.T) {
	movie := &models.Item{
		ID: "movie-1", Type: models.ItemMovie,
		FilesystemEntries: []models.MediaEntry{{InfoHash: "h1", VFSPaths: []string{"/lib/movie.mkv"}}},
	}
	p := &Pipeline{Store: newStore(t, movie)}

	assert.Equal(t, models.StateCompleted, p.deriveState(movie))
}

func TestMaterializeProjectsEachLeafAndSyncsHost(t *testing.T) {
	host := vfs.NewMemHost()
	leaf := &models.Item{
		ID:   "movie-1",
		Type: models.ItemMovie,
		FilesystemEntries: []models.MediaEntry{
			{InfoHash: "abc123", OriginalFilename: "Movie.2020.mkv"},
		},
	}
	p := &Pipeline{Store: newStore(t, leaf), Host: host, KeepVersions: 1}

	reenqueue, err := p.materialize(leaf)

	require.NoError(t, err)
	require.Len(t, reenqueue, 1)
	assert.Equal(t, "movie-1", reenqueue[0].ItemID)
}

func TestMaterializeRetentionUsesDesiredOrderNotJustRawRank(t *testing.T) {
	host := vfs.NewMemHost()
	leaf := &models.Item{
		ID: "movie-1", Type: models.ItemMovie, Title: "Heat",
		// bbbb is first in Streams (the desired order a pre-validation
		// re-rank would have produced), despite aaaa's higher raw Rank.
		Streams: []models.Stream{
			{InfoHash: "bbbb", Rank: 10},
			{InfoHash: "aaaa", Rank: 100},
		},
		FilesystemEntries: []models.MediaEntry{
			{InfoHash: "aaaa", OriginalFilename: "Heat.aaaa.mkv"},
			{InfoHash: "bbbb", OriginalFilename: "Heat.bbbb.mkv"},
		},
	}
	p := &Pipeline{Store: newStore(t, leaf), Host: host, KeepVersions: 1}

	_, err := p.materialize(leaf)

	require.NoError(t, err)
	require.Len(t, leaf.FilesystemEntries, 1)
	assert.Equal(t, "bbbb", leaf.FilesystemEntries[0].InfoHash, "the desired infohash must win retention even though it has the lower raw rank")
}

func TestMaterializeTearsDownStaleSymlinkWhenRetentionDropsEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	host := vfs.NewMemHost()
	symlinks := vfs.NewSymlinkProjector(fs, "/library")

	leaf := &models.Item{
		ID: "movie-1", Type: models.ItemMovie, Title: "Heat", Year: 1995,
		Streams: []models.Stream{
			{InfoHash: "bbbb", Rank: 100},
			{InfoHash: "aaaa", Rank: 50},
		},
		FilesystemEntries: []models.MediaEntry{
			{InfoHash: "bbbb", OriginalFilename: "Heat.bbbb.mkv"},
			{InfoHash: "aaaa", OriginalFilename: "Heat.aaaa.mkv"},
		},
	}
	p := &Pipeline{
		Store: newStore(t, leaf), Host: host, Symlinks: symlinks,
		KeepVersions: 2, DownloadRoot: "/downloads",
	}

	_, err := p.materialize(leaf)
	require.NoError(t, err)

	staleTarget := "/library/" + vfs.PathFor(leaf, models.MediaEntry{InfoHash: "aaaa", OriginalFilename: "Heat.aaaa.mkv"})
	_, statErr := fs.Stat(staleTarget)
	require.NoError(t, statErr, "both entries should be symlinked after the first pass")

	p.KeepVersions = 1
	_, err = p.materialize(leaf)
	require.NoError(t, err)

	require.Len(t, leaf.FilesystemEntries, 1)
	assert.Equal(t, "bbbb", leaf.FilesystemEntries[0].InfoHash)

	_, statErr = fs.Stat(staleTarget)
	assert.True(t, os.IsNotExist(statErr), "dropped entry's symlink must be torn down, not left stale")
}

func TestLeavesOfCollectsOnlyMovieAndEpisodeDescendants(t *testing.T) {
	show := &models.Item{ID: "show-1", Type: models.ItemShow, Children: []string{"season-1"}}
	season := &models.Item{ID: "season-1", Type: models.ItemSeason, ParentID: "show-1", Children: []string{"ep-1", "ep-2"}}
	ep1 := &models.Item{ID: "ep-1", Type: models.ItemEpisode, ParentID: "season-1"}
	ep2 := &models.Item{ID: "ep-2", Type: models.ItemEpisode, ParentID: "season-1"}
	p := &Pipeline{Store: newStore(t, show, season, ep1, ep2)}

	leaves := p.leavesOf(show)

	require.Len(t, leaves, 2)
	ids := []string{leaves[0].ID, leaves[1].ID}
	assert.ElementsMatch(t, []string{"ep-1", "ep-2"}, ids)
}

func TestPostprocessStampsValidatedAtForNonSeasonParent(t *testing.T) {
	show := &models.Item{ID: "show-1", Type: models.ItemShow}
	p := &Pipeline{Store: newStore(t, show)}

	reenqueue, err := p.postprocess(context.Background(), show)

	require.NoError(t, err)
	require.NotNil(t, show.ValidatedAt)
	require.Len(t, reenqueue, 1)
	assert.Equal(t, "show-1", reenqueue[0].ItemID)
}

func TestResolveShowWalksParentChainToRoot(t *testing.T) {
	show := &models.Item{ID: "show-1", Type: models.ItemShow, Children: []string{"season-1"}}
	season := &models.Item{ID: "season-1", Type: models.ItemSeason, ParentID: "show-1"}
	ep := &models.Item{ID: "ep-1", Type: models.ItemEpisode, ParentID: "season-1"}
	p := &Pipeline{Store: newStore(t, show, season, ep)}

	resolved := p.resolveShow(ep)

	assert.Equal(t, "show-1", resolved.ID)
}

func TestStoreEpisodeLookupResolvesBySeasonAndEpisodeNumber(t *testing.T) {
	show := &models.Item{ID: "show-1", Type: models.ItemShow, Children: []string{"season-1"}}
	season := &models.Item{ID: "season-1", Type: models.ItemSeason, ParentID: "show-1", SeasonNumber: 1, Children: []string{"ep-1"}}
	ep := &models.Item{ID: "ep-1", Type: models.ItemEpisode, ParentID: "season-1", SeasonNumber: 1, EpisodeNumber: 3}
	s := newStore(t, show, season, ep)
	lookup := storeEpisodeLookup{store: s, show: show}

	resolved, ok := lookup.ResolveEpisode(1, 3)
	require.True(t, ok)
	assert.Equal(t, "ep-1", resolved.ID)

	_, ok = lookup.ResolveEpisode(1, 99)
	assert.False(t, ok)
}

func TestEnsureSeasonIsIdempotent(t *testing.T) {
	show := &models.Item{ID: "show-1", Type: models.ItemShow}
	p := &Pipeline{Store: newStore(t, show)}

	first := p.ensureSeason(show, 1)
	second := p.ensureSeason(show, 1)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, show.Children, 1, "re-running ensureSeason must not duplicate the child reference")
}

func TestContextNumbersForEpisodeReturnsSeasonAndEpisode(t *testing.T) {
	ep := &models.Item{Type: models.ItemEpisode, SeasonNumber: 2, EpisodeNumber: 5}

	seasons, episodes := contextNumbers(ep)

	assert.Equal(t, []int{2}, seasons)
	assert.Equal(t, []int{5}, episodes)
}

func TestContextNumbersForMovieReturnsNil(t *testing.T) {
	movie := &models.Item{Type: models.ItemMovie}

	seasons, episodes := contextNumbers(movie)

	assert.Nil(t, seasons)
	assert.Nil(t, episodes)
}

func TestProfilesForResolvesByLongestPathPrefix(t *testing.T) {
	movie := &models.Item{ID: "movie-1", Type: models.ItemMovie, Title: "Dune", Year: 2021}
	p := &Pipeline{
		Profiles: []models.RankingProfile{
			{Name: "default"},
			{Name: "4k"},
		},
		PathProfiles: models.PathProfiles{
			Paths:          map[string]string{"Movies": "4k"},
			DefaultProfile: "default",
		},
	}

	resolved := p.profilesFor(movie)

	require.Len(t, resolved, 1)
	assert.Equal(t, "4k", resolved[0].Name)
}

func TestProfilesForFallsBackToAllProfilesWhenNoPathMatches(t *testing.T) {
	movie := &models.Item{ID: "movie-1", Type: models.ItemMovie, Title: "Dune", Year: 2021}
	p := &Pipeline{
		Profiles: []models.RankingProfile{{Name: "default"}, {Name: "4k"}},
	}

	resolved := p.profilesFor(movie)

	assert.Len(t, resolved, 2)
}
