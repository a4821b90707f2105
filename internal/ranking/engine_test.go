package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novastream/models"
)

func TestRankIsDeterministic(t *testing.T) {
	profile := models.RankingProfile{Name: "default"}
	title := "The.Matrix.1999.1080p.BluRay.x264-GROUP"

	a, err := Rank(title, "AAAA", profile)
	require.NoError(t, err)
	b, err := Rank(title, "AAAA", profile)
	require.NoError(t, err)

	assert.Equal(t, a.Rank, b.Rank)
	assert.Equal(t, a.ParsedData, b.ParsedData)
}

func TestRankRejectsTrashUnderRemoveAllTrash(t *testing.T) {
	profile := models.RankingProfile{Name: "default", RemoveAllTrash: true}
	_, err := Rank("Movie.2020.CAM.x264", "AAAA", profile)
	assert.ErrorIs(t, err, ErrRejected)
}

func TestRankHigherResolutionOutranksLower(t *testing.T) {
	profile := models.RankingProfile{Name: "default"}
	hi, err := Rank("Show.S01E01.2160p.WEB-DL", "AAAA", profile)
	require.NoError(t, err)
	lo, err := Rank("Show.S01E01.720p.WEB-DL", "BBBB", profile)
	require.NoError(t, err)

	assert.Greater(t, hi.Rank, lo.Rank)
}

func TestNormalizeHarvestedTitleStripsEmojiAndExtraLines(t *testing.T) {
	raw := "🔥 Movie Name 2023 1080p WEB-DL\nComment line\nanother"
	assert.Equal(t, "Movie Name 2023 1080p WEB-DL", NormalizeHarvestedTitle(raw))
}

func TestInfoHashFromMagnet(t *testing.T) {
	magnet := "magnet:?xt=urn:btih:AABBCCDDEEFF00112233445566778899AABBCCDD&dn=test"
	assert.Equal(t, "aabbccddeeff00112233445566778899aabbccdd", InfoHashFromMagnet(magnet))
	assert.Equal(t, "", InfoHashFromMagnet("magnet:?xt=urn:nope"))
}

func TestContextAcceptsMovieRejectsSeasonAnnotation(t *testing.T) {
	item := &models.Item{Type: models.ItemMovie, Year: 1994, Country: "US"}
	parsed := models.ParsedData{Seasons: []int{1}}
	assert.False(t, ContextAccepts(item, parsed, nil, nil))
}

func TestContextAcceptsYearWithinOneYear(t *testing.T) {
	item := &models.Item{Type: models.ItemMovie, Year: 1994}
	assert.True(t, ContextAccepts(item, models.ParsedData{Year: 1995}, nil, nil))
	assert.False(t, ContextAccepts(item, models.ParsedData{Year: 1996}, nil, nil))
}

func TestContextAcceptsCountryNormalization(t *testing.T) {
	item := &models.Item{Type: models.ItemMovie, Country: "USA"}
	assert.True(t, ContextAccepts(item, models.ParsedData{Country: "US"}, nil, nil))
}

func TestContextAcceptsSeasonRequiresMembership(t *testing.T) {
	item := &models.Item{Type: models.ItemSeason, SeasonNumber: 2}
	assert.True(t, ContextAccepts(item, models.ParsedData{Seasons: []int{1, 2, 3}}, nil, nil))
	assert.False(t, ContextAccepts(item, models.ParsedData{Seasons: []int{1, 3}}, nil, nil))
}

func TestContextAcceptsRejectsDivergentParsedTitle(t *testing.T) {
	item := &models.Item{Type: models.ItemMovie, Title: "Dark"}
	assert.True(t, ContextAccepts(item, models.ParsedData{Title: "Dark"}, nil, nil))
	assert.False(t, ContextAccepts(item, models.ParsedData{Title: "Completely Unrelated Film"}, nil, nil))
}

func TestBucketCapsAndOrdersByRankThenSizeThenTitle(t *testing.T) {
	streams := []models.ScoredStream{
		{Stream: models.Stream{InfoHash: "a", RawTitle: "b-title", Rank: 10, ParsedData: models.ParsedData{Resolution: "1080p"}}, Size: 100},
		{Stream: models.Stream{InfoHash: "b", RawTitle: "a-title", Rank: 10, ParsedData: models.ParsedData{Resolution: "1080p"}}, Size: 100},
		{Stream: models.Stream{InfoHash: "c", RawTitle: "c-title", Rank: 20, ParsedData: models.ParsedData{Resolution: "1080p"}}, Size: 50},
	}
	out := Bucket(streams, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "c", out[0].InfoHash)
	assert.Equal(t, "b", out[1].InfoHash) // tie on rank+size, lexicographic raw_title wins
}
