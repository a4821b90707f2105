// Package orchestrator implements the Download Orchestrator (§4.3), the
// File-to-Item Matcher (§4.4), MediaEntry creation & dedup (§4.5), and the
// Retention Enforcer (§4.6), grounded on
// original_source/.../services/downloaders/__init__.py and the teacher's
// services/debrid error-handling idioms.
package orchestrator

import (
	"strings"

	"novastream/internal/ranking"
	"novastream/internal/statemachine"
	"novastream/models"
)

// EpisodeLookup resolves a (season, episode) pair to a concrete Episode
// item, honoring absolute numbering for anime, grounded on the original's
// `show.get_absolute_episode`.
type EpisodeLookup interface {
	ResolveEpisode(seasonNumber, episodeNumber int) (*models.Item, bool)
}

// EpisodeCap computes `max(sum of season episode counts, last-season
// last-episode number)`, exactly as the source does, but as an explicit,
// named policy knob rather than a silently-replicated fragile fallback
// (§9 Design Notes: "re-implementers should surface this as an explicit
// policy knob"). seasonEpisodeCounts maps season number -> episode count;
// lastSeasonLastEpisode is the highest episode number seen in the most
// recent season.
func EpisodeCap(seasonEpisodeCounts map[int]int, lastSeasonLastEpisode int) int {
	sum := 0
	for _, count := range seasonEpisodeCounts {
		sum += count
	}
	if lastSeasonLastEpisode > sum {
		return lastSeasonLastEpisode
	}
	return sum
}

// MatchResult is the outcome of binding one TorrentContainer to an item.
type MatchResult struct {
	MatchedLeaves []*models.Item
	NewEntries    map[string][]models.MediaEntry // leaf item ID -> entries
}

// MatchContainerToItem implements §4.4: bind container files to concrete
// item leaves (Movie or Episode) and produce MediaEntries (§4.5). Each
// resolved episode's derived state (statemachine.Derive) is checked so
// episodes already Completed or Symlinked are skipped (Downloaded is not, so
// a second profile version may still attach).
func MatchContainerToItem(
	item *models.Item,
	container *models.TorrentContainer,
	stream models.Stream,
	lookup EpisodeLookup,
	episodeCap int,
) MatchResult {
	result := MatchResult{NewEntries: make(map[string][]models.MediaEntry)}
	processed := make(map[string]struct{})

	for _, file := range container.Files {
		parsed := ranking.ParseTitle(file.Filename)

		if item.Type == models.ItemMovie {
			if parsed.TypeOf() != "movie" {
				continue
			}
			entry := buildEntry(file, container, stream, parsed)
			result.NewEntries[item.ID] = append(result.NewEntries[item.ID], entry)
			result.MatchedLeaves = append(result.MatchedLeaves, item)
			continue
		}

		// Show/Season/Episode context.
		seasonNums, literalSpecial := seasonCandidates(item, parsed.Seasons)
		if literalSpecial {
			continue // season 0 (specials), or no season on a Show item: rejected
		}
		for _, seasonNum := range seasonNums {
			for _, epNum := range parsed.Episodes {
				if epNum == 0 {
					continue // specials, rejected per §4.4
				}
				if epNum > episodeCap {
					continue
				}

				leaf, ok := lookup.ResolveEpisode(seasonNum, epNum)
				if !ok {
					continue
				}
				if _, already := processed[leaf.ID]; already {
					continue
				}

				state := statemachine.Derive(leaf)
				if state == models.StateCompleted || state == models.StateSymlinked {
					continue
				}

				entry := buildEntry(file, container, stream, parsed)
				result.NewEntries[leaf.ID] = append(result.NewEntries[leaf.ID], entry)
				result.MatchedLeaves = append(result.MatchedLeaves, leaf)
				processed[leaf.ID] = struct{}{}
			}
		}
	}

	if len(result.MatchedLeaves) > 0 && item.Type != models.ItemMovie {
		item.ActiveStream = &models.ActiveStream{InfoHash: container.InfoHash, ProviderTorrentID: container.TorrentID}
	}

	return result
}

// seasonCandidates returns the seasons a file's episodes are resolved in. A
// literal season-0 annotation (specials) is rejected. A filename with no
// season annotation resolves against the item's own season for Episode and
// Season items; for a Show item it is rejected the same way as season 0
// (literalSpecial is true). EpisodeLookup resolves by (season, episode)
// only, so absolute episode numbering is not attempted.
func seasonCandidates(item *models.Item, parsedSeasons []int) (seasons []int, literalSpecial bool) {
	if len(parsedSeasons) > 0 {
		if len(parsedSeasons) == 1 && parsedSeasons[0] == 0 {
			return nil, true
		}
		return parsedSeasons, false
	}
	switch item.Type {
	case models.ItemEpisode, models.ItemSeason:
		return []int{item.SeasonNumber}, false
	default:
		return nil, true
	}
}

func buildEntry(file models.TorrentFile, container *models.TorrentContainer, stream models.Stream, parsed models.ParsedData) models.MediaEntry {
	return models.MediaEntry{
		OriginalFilename:   file.Filename,
		Provider:           "", // filled in by the caller, which knows the provider name
		ProviderDownloadID: file.FileID,
		FileSize:           file.Size,
		InfoHash:           strings.ToLower(container.InfoHash),
		MediaMetadata: models.MediaMetadata{
			ParsedData:  parsed,
			ProfileName: stream.ProfileName,
		},
	}
}

// AttachEntry implements §4.5's dedup rule: look up existing entries by
// (infohash, profile_name); update in place if found, append otherwise.
func AttachEntry(item *models.Item, entry models.MediaEntry) {
	for i, existing := range item.FilesystemEntries {
		if existing.Key() == entry.Key() {
			item.FilesystemEntries[i] = entry
			return
		}
	}
	item.FilesystemEntries = append(item.FilesystemEntries, entry)
}
