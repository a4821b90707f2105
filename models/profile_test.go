package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathProfilesResolveLongestPrefix(t *testing.T) {
	pp := PathProfiles{
		Paths: map[string]string{
			"/library/shows":       "standard",
			"/library/shows/anime": "anime",
		},
		DefaultProfile: "default",
	}

	assert.Equal(t, "anime", pp.Resolve("/library/shows/anime/One Piece"))
	assert.Equal(t, "standard", pp.Resolve("/library/shows/Breaking Bad"))
	assert.Equal(t, "default", pp.Resolve("/library/movies/Heat"))
}

func TestItemCanonicalID(t *testing.T) {
	i := &Item{TmdbID: "1399", TvdbID: "81189"}
	assert.Equal(t, "1399", i.CanonicalID())

	i.ImdbID = "tt0944947"
	assert.Equal(t, "tt0944947", i.CanonicalID())
}

func TestItemBlacklist(t *testing.T) {
	i := &Item{}
	assert.False(t, i.IsBlacklisted("aaaa"))

	i.Blacklist("aaaa")
	assert.True(t, i.IsBlacklisted("aaaa"))
	assert.False(t, i.IsBlacklisted("bbbb"))
}

func TestMediaEntryKeyTreatsEmptyProfileAsEquivalenceClass(t *testing.T) {
	a := MediaEntry{InfoHash: "aaaa"}
	b := MediaEntry{InfoHash: "aaaa"}
	assert.Equal(t, a.Key(), b.Key())
}

func TestTorrentContainerMedianFileSize(t *testing.T) {
	c := TorrentContainer{
		TotalSize: 900,
		Files: []TorrentFile{
			{Size: 100}, {Size: 300}, {Size: 500},
		},
	}
	assert.Equal(t, int64(300), c.MedianFileSize())

	c2 := TorrentContainer{TotalSize: 1234}
	assert.Equal(t, int64(1234), c2.MedianFileSize())
}
