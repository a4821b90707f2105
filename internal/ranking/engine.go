// Package ranking implements the Ranking Engine (§4.1): title parsing,
// trash/language filtering, and deterministic rank assignment, plus the
// Scraper Fan-in's context filters and bucketed ordering (§4.1, §4.2).
package ranking

import (
	"errors"
	"sort"
	"strings"

	"novastream/models"
)

// ErrRejected is returned by Rank when a raw_title is garbage under the
// supplied profile (trash term, excluded language, oversized, etc).
var ErrRejected = errors.New("ranking: release rejected")

var resolutionRank = map[string]int{
	"2160p": 4,
	"1080p": 3,
	"720p":  2,
	"480p":  1,
}

func resolutionToNumeric(res string) int {
	return resolutionRank[strings.ToLower(res)]
}

// Rank parses raw_title, applies profile-level remove_all_trash / language
// filters, and assigns an integer rank. Ranking depends only on the profile,
// never on item context (context filters live in Fan-in, see ContextAccepts).
func Rank(rawTitle, infohash string, profile models.RankingProfile) (models.Stream, error) {
	parsed := ParseTitle(rawTitle)

	if profile.RemoveAllTrash && isTrash(rawTitle, profile.FilterOutTerms) {
		return models.Stream{}, ErrRejected
	}

	if !languageAllowed(parsed, profile) {
		return models.Stream{}, ErrRejected
	}

	if profile.MaxResolution != "" {
		max := resolutionToNumeric(profile.MaxResolution)
		got := resolutionToNumeric(parsed.Resolution)
		if max > 0 && got > max {
			return models.Stream{}, ErrRejected
		}
	}

	if !hdrPolicyAllows(parsed, profile) {
		return models.Stream{}, ErrRejected
	}

	return models.Stream{
		InfoHash:    strings.ToLower(infohash),
		RawTitle:    rawTitle,
		ParsedData:  parsed,
		Rank:        computeRank(parsed, profile),
		ProfileName: profile.Name,
	}, nil
}

var defaultTrashTerms = []string{"cam", "telesync", "r5", "workprint", "hdcam"}

func isTrash(rawTitle string, extra []string) bool {
	lower := strings.ToLower(rawTitle)
	for _, term := range defaultTrashTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	for _, term := range extra {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func languageAllowed(parsed models.ParsedData, profile models.RankingProfile) bool {
	// Without a dedicated language field on ParsedData (rls exposes language
	// via release.Language, folded upstream into the title string here),
	// language filtering is approximated against the raw country/title by
	// the exclude list only; an include list with no match on an untagged
	// release is permissive (absence of a language tag is not grounds for
	// rejection).
	if len(profile.LanguageExclude) == 0 {
		return true
	}
	lower := strings.ToLower(parsed.Title)
	for _, excluded := range profile.LanguageExclude {
		excluded = strings.ToLower(strings.TrimSpace(excluded))
		if excluded != "" && strings.Contains(lower, excluded) {
			return false
		}
	}
	return true
}

func hdrPolicyAllows(parsed models.ParsedData, profile models.RankingProfile) bool {
	hasHDR := len(parsed.HDR) > 0
	switch profile.HDRDVPolicy {
	case models.HDRPolicyNone:
		return !hasHDR
	default:
		return true
	}
}

// computeRank favors higher resolution, HDR (when prioritized), and smaller
// group/source penalty terms absent — deterministic given parsed+profile.
func computeRank(parsed models.ParsedData, profile models.RankingProfile) int {
	rank := resolutionToNumeric(parsed.Resolution) * 100

	if profile.PrioritizeHDR && len(parsed.HDR) > 0 {
		rank += 10
	}

	switch strings.ToLower(parsed.Source) {
	case "bluray", "blu-ray":
		rank += 5
	case "web", "webdl", "web-dl":
		rank += 3
	case "hdtv":
		rank += 1
	}

	return rank
}

// Bucket groups streams by resolution, caps each bucket at bucketLimit, and
// sorts within the bucket by descending rank, then larger size, then
// lexicographic raw_title (§4.1 ordering/tie-breaks).
func Bucket(streams []models.ScoredStream, bucketLimit int) []models.ScoredStream {
	buckets := make(map[string][]models.ScoredStream)
	var order []string
	for _, s := range streams {
		key := s.ParsedData.Resolution
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], s)
	}

	var out []models.ScoredStream
	for _, key := range order {
		bucket := buckets[key]
		sort.SliceStable(bucket, func(i, j int) bool {
			if bucket[i].Rank != bucket[j].Rank {
				return bucket[i].Rank > bucket[j].Rank
			}
			if bucket[i].Size != bucket[j].Size {
				return bucket[i].Size > bucket[j].Size
			}
			return bucket[i].RawTitle < bucket[j].RawTitle
		})
		if bucketLimit > 0 && len(bucket) > bucketLimit {
			bucket = bucket[:bucketLimit]
		}
		out = append(out, bucket...)
	}
	return out
}
