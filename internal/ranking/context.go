package ranking

import (
	"novastream/models"
	"novastream/utils/similarity"
)

// minTitleSimilarity is the floor below which a parsed release title is
// considered a different work entirely rather than a formatting variant
// (e.g. punctuation, a subtitle, a possessive prefix).
const minTitleSimilarity = 0.45

// normalizeCountry maps the common aliases the spec calls out explicitly.
func normalizeCountry(c string) string {
	switch c {
	case "USA":
		return "US"
	case "GB":
		return "UK"
	default:
		return c
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func subsetInt(subset, superset []int) bool {
	set := make(map[int]struct{}, len(superset))
	for _, v := range superset {
		set[v] = struct{}{}
	}
	for _, v := range subset {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

// ContextAccepts applies the §4.1 context filters: these are enforced by the
// Scraper Fan-in, not the Ranking Engine itself, because they depend on the
// item being scraped for, not just the profile. itemSeasons/itemEpisodes
// describe the item's own season/episode set and are consulted for Show
// items only. A Season item is checked against item.SeasonNumber and the
// episode-count rule; whether its episodes are in the torrent's episodes is
// not checked.
func ContextAccepts(item *models.Item, parsed models.ParsedData, itemSeasons, itemEpisodes []int) bool {
	switch item.Type {
	case models.ItemMovie:
		if len(parsed.Seasons) > 0 || len(parsed.Episodes) > 0 {
			return false
		}

	case models.ItemShow:
		if len(parsed.Episodes) > 0 && len(parsed.Episodes) < 3 {
			return false
		}
		if len(parsed.Seasons) > 0 {
			if !subsetInt(itemSeasons, parsed.Seasons) {
				return false
			}
		}
		// Single-season show with episode-only torrent: item episodes must
		// be a subset of the torrent's episodes.
		if len(itemSeasons) == 1 && len(parsed.Seasons) == 0 && len(parsed.Episodes) > 0 {
			if !subsetInt(itemEpisodes, parsed.Episodes) {
				return false
			}
		}

	case models.ItemSeason:
		if len(parsed.Seasons) > 0 && !containsInt(parsed.Seasons, item.SeasonNumber) {
			return false
		}
		if len(parsed.Episodes) > 0 && len(parsed.Episodes) < 3 {
			return false
		}

	case models.ItemEpisode:
		switch {
		case len(parsed.Episodes) > 0:
			if !containsInt(parsed.Episodes, item.EpisodeNumber) {
				return false
			}
		case len(parsed.Seasons) > 0:
			if !containsInt(parsed.Seasons, item.SeasonNumber) {
				return false
			}
		default:
			return false
		}
	}

	if parsed.Country != "" && !item.IsAnime {
		if normalizeCountry(parsed.Country) != normalizeCountry(item.Country) {
			return false
		}
	}

	if parsed.Year != 0 && item.Year != 0 {
		diff := parsed.Year - item.Year
		if diff < -1 || diff > 1 {
			return false
		}
	}

	if item.IsAnime {
		// No dubbed-only mode is applied: RankingProfile has no such switch,
		// and neither this function nor FanIn reads parsed.Dubbed.
	}

	if parsed.Title != "" && item.Title != "" {
		if similarity.Similarity(parsed.Title, item.Title) < minTitleSimilarity {
			return false
		}
	}

	return true
}
