// Package scrape implements the Scraper Fan-in (§4.2): parallel querying of
// pluggable release sources, deduplication, per-profile ranking/context
// filtering, and bucketed top-N selection.
package scrape

import "context"

// Request provides normalized inputs to scraper implementations, grounded
// on the teacher's services/debrid.SearchRequest shape.
type Request struct {
	Title      string
	Year       int
	IMDBID     string
	IsMovie    bool
	SeasonNum  int
	EpisodeNum int
}

// RawResult is a scraper-specific result prior to ranking: a candidate
// (infohash or magnet) plus its raw release title and size.
type RawResult struct {
	RawTitle  string
	InfoHash  string
	Magnet    string
	SizeBytes int64
	Provider  string

	// Season optionally narrows a harvested release to one season. FanIn
	// keeps it on its merged candidates but does not read it; the HQ
	// pre-validator's "matches target season" re-sort (§4.3) uses the parsed
	// title's seasons instead.
	Season *int
}

// Scraper describes a pluggable source of candidate releases. Real protocol
// implementations (Torrentio, Jackett, Zilean, AIOStreams) are out of scope
// here (§1) and are represented only by this interface.
type Scraper interface {
	Name() string
	Search(ctx context.Context, req Request) ([]RawResult, error)
}
