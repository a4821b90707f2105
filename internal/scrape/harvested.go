package scrape

import (
	"context"

	"novastream/internal/ranking"
	"novastream/models"
)

// HarvestedScraper is the pseudo-scraper that contributes every release in
// item.Aliases.W2PReleases, grounded on watchlist2plex.py's
// Watchlist2PlexScraper.run: it never performs network I/O itself, it only
// projects releases the Harvester already attached to the item.
type HarvestedScraper struct {
	Releases []models.HarvestedRelease
}

func (h *HarvestedScraper) Name() string { return "harvested releases" }

func (h *HarvestedScraper) Search(_ context.Context, _ Request) ([]RawResult, error) {
	out := make([]RawResult, 0, len(h.Releases))
	for _, rel := range h.Releases {
		title := rel.RawTitle
		if title == "" {
			title = rel.Title
		}
		title = ranking.NormalizeHarvestedTitle(title)
		if title == "" {
			continue
		}

		infohash := rel.InfoHash
		if infohash == "" && rel.Magnet != "" {
			infohash = ranking.InfoHashFromMagnet(rel.Magnet)
		}
		if infohash == "" {
			continue
		}

		out = append(out, RawResult{
			RawTitle:  title,
			InfoHash:  infohash,
			SizeBytes: rel.SizeBytes,
			Provider:  "harvested",
			Season:    rel.Season,
		})
	}
	return out, nil
}
