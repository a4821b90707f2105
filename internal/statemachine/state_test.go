package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"novastream/models"
)

func TestDeriveUnknownThenRequestedThenIndexed(t *testing.T) {
	item := &models.Item{Type: models.ItemMovie}
	assert.Equal(t, models.StateUnknown, Derive(item))

	item.ImdbID = "tt123"
	assert.Equal(t, models.StateRequested, Derive(item))

	item.Title = "Heat"
	assert.Equal(t, models.StateIndexed, Derive(item))
}

func TestDeriveScrapedIgnoresBlacklistedStreams(t *testing.T) {
	item := &models.Item{Type: models.ItemMovie, ImdbID: "tt1", Title: "Heat"}
	item.Streams = []models.Stream{{InfoHash: "aaaa"}}
	item.Blacklist("aaaa")
	assert.Equal(t, models.StateIndexed, Derive(item))

	item.Streams = append(item.Streams, models.Stream{InfoHash: "bbbb"})
	assert.Equal(t, models.StateScraped, Derive(item))
}

func TestDeriveDownloadedThenCompletedOnMovie(t *testing.T) {
	item := &models.Item{Type: models.ItemMovie, ImdbID: "tt1", Title: "Heat"}
	item.FilesystemEntries = []models.MediaEntry{{InfoHash: "aaaa"}}
	assert.Equal(t, models.StateDownloaded, Derive(item))

	item.FilesystemEntries[0].VFSPaths = []string{"/library/Heat (1995)/Heat.mkv"}
	assert.Equal(t, models.StateCompleted, Derive(item))
}

func TestDeriveParentFoldsToCompletedOnlyWhenAllLeavesDone(t *testing.T) {
	assert.Equal(t, models.StateCompleted, DeriveParent([]models.State{models.StateCompleted, models.StateSymlinked}))
	assert.Equal(t, models.StateDownloaded, DeriveParent([]models.State{models.StateCompleted, models.StateDownloaded}))
	assert.Equal(t, models.StateFailed, DeriveParent([]models.State{models.StateFailed, models.StateFailed}))
}

func TestNextServiceRouting(t *testing.T) {
	assert.Equal(t, "indexer", NextService(models.StateRequested))
	assert.Equal(t, "scraper", NextService(models.StateIndexed))
	assert.Equal(t, "downloader", NextService(models.StateScraped))
	assert.Equal(t, "filesystem", NextService(models.StateDownloaded))
	assert.Equal(t, "", NextService(models.StateCompleted))
}
