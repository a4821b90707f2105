package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novastream/models"
)

func TestMemHostAddRegistersPathsAndWritesThemBack(t *testing.T) {
	leaf := &models.Item{
		ID: "movie-1", Type: models.ItemMovie, Title: "Heat", Year: 1995,
		FilesystemEntries: []models.MediaEntry{
			{OriginalFilename: "Heat.1995.1080p.mkv", InfoHash: "abcdef"},
		},
	}
	host := NewMemHost()

	ok := host.Add(leaf)

	require.True(t, ok)
	require.Len(t, leaf.FilesystemEntries[0].VFSPaths, 1)
	assert.Contains(t, leaf.FilesystemEntries[0].VFSPaths[0], "Heat (1995)")
	assert.Equal(t, leaf.FilesystemEntries[0].VFSPaths, host.PathsFor("movie-1"))
}

func TestMemHostRemoveClearsRegistration(t *testing.T) {
	leaf := &models.Item{
		ID: "movie-1", Type: models.ItemMovie, Title: "Heat",
		FilesystemEntries: []models.MediaEntry{{OriginalFilename: "Heat.mkv", InfoHash: "abcdef"}},
	}
	host := NewMemHost()
	host.Add(leaf)

	host.Remove(leaf)

	assert.Empty(t, host.PathsFor("movie-1"))
	assert.Nil(t, leaf.FilesystemEntries[0].VFSPaths)
}

func TestMemHostAddSkipsEntriesMissingIdentity(t *testing.T) {
	leaf := &models.Item{
		ID: "movie-1", Type: models.ItemMovie, Title: "Heat",
		FilesystemEntries: []models.MediaEntry{{OriginalFilename: "", InfoHash: "abcdef"}},
	}
	host := NewMemHost()

	ok := host.Add(leaf)

	assert.False(t, ok)
}

func TestPathForBucketsEpisodesBySeason(t *testing.T) {
	leaf := &models.Item{ID: "ep-1", Type: models.ItemEpisode, Title: "Dark", Year: 2017, SeasonNumber: 1}
	path := PathFor(leaf, models.MediaEntry{OriginalFilename: "Dark.S01E01.mkv"})
	assert.Equal(t, "Series/D/Dark (2017)/Season 1/Dark.S01E01.mkv", path)
}
