package scrape

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"novastream/internal/ranking"
	"novastream/models"
)

// candidate is one deduplicated (infohash, raw_title) pair gathered from all
// scrapers, grounded on services/debrid/search.go's dedup-by-GUID fan-out.
type candidate struct {
	rawTitle string
	size     int64
	season   *int
}

// FanIn implements §4.2: query every scraper in parallel, merge into one
// infohash->raw_title mapping, then for each profile in order rank, apply
// context filters, bucket, and take the top distinct infohashes not already
// claimed by an earlier profile. The final order is the concatenation of
// per-profile selections, preserving profile order.
func FanIn(
	ctx context.Context,
	item *models.Item,
	itemSeasons, itemEpisodes []int,
	scrapers []Scraper,
	profiles []models.RankingProfile,
	req Request,
) ([]models.Stream, error) {
	merged, err := gather(ctx, scrapers, req)
	if err != nil {
		return nil, err
	}

	var out []models.Stream
	taken := make(map[string]struct{})

	for _, profile := range profiles {
		var scored []models.ScoredStream
		for infohash, cand := range merged {
			stream, err := ranking.Rank(cand.rawTitle, infohash, profile)
			if err != nil {
				continue
			}
			if !ranking.ContextAccepts(item, stream.ParsedData, itemSeasons, itemEpisodes) {
				continue
			}
			scored = append(scored, models.ScoredStream{Stream: stream, Size: cand.size})
		}

		// merged is a map, so fix the order before bucketing: buckets then
		// come out highest-rank first on every run.
		sort.SliceStable(scored, func(i, j int) bool {
			if scored[i].Rank != scored[j].Rank {
				return scored[i].Rank > scored[j].Rank
			}
			return scored[i].InfoHash < scored[j].InfoHash
		})
		bucketed := ranking.Bucket(scored, profile.BucketLimit)

		count := 0
		for _, s := range bucketed {
			if count >= profile.KeepVersionsPerItem {
				break
			}
			if _, already := taken[s.InfoHash]; already {
				continue // duplicate across profiles: dropped, not re-taken
			}
			taken[s.InfoHash] = struct{}{}
			out = append(out, s.Stream)
			count++
		}
	}

	return out, nil
}

func gather(ctx context.Context, scrapers []Scraper, req Request) (map[string]candidate, error) {
	results := make([][]RawResult, len(scrapers))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range scrapers {
		i, s := i, s
		g.Go(func() error {
			res, err := s.Search(gctx, req)
			if err != nil {
				// A single failing scraper must not abort the whole fan-in;
				// the orchestrator-level circuit-breaker semantics apply to
				// debrid providers, not scrapers.
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	merged := make(map[string]candidate)
	for _, res := range results {
		for _, r := range res {
			if r.InfoHash == "" {
				continue
			}
			mu.Lock()
			if _, exists := merged[r.InfoHash]; !exists {
				merged[r.InfoHash] = candidate{rawTitle: r.RawTitle, size: r.SizeBytes, season: r.Season}
			}
			mu.Unlock()
		}
	}

	return merged, nil
}
