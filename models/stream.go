package models

// ParsedData is the release-name parse result, produced by the ranking
// engine from a raw_title via rls.ParseString plus the season/episode range
// supplement (rls itself only exposes single Series/Episode ints).
type ParsedData struct {
	Title    string
	Year     int
	Seasons  []int
	Episodes []int
	Country  string
	Dubbed   bool

	Resolution string
	Source     string
	Codec      []string
	HDR        []string
	Group      string

	// IsComplete marks a season-pack/complete-series torrent (no episode
	// annotation beyond the season list).
	IsComplete bool
}

// TypeOf reports the media type implied by the parsed data: "movie" when
// there is no season/episode annotation at all.
func (p ParsedData) TypeOf() string {
	if len(p.Seasons) == 0 && len(p.Episodes) == 0 {
		return "movie"
	}
	return "show"
}

// Stream is a ranked, profile-tagged candidate release. Immutable after
// construction.
type Stream struct {
	InfoHash    string
	RawTitle    string
	ParsedData  ParsedData
	Rank        int
	ProfileName string
}

// Size is populated from the scraper result so the fan-in and orchestrator
// can perform size-based tie-breaks without re-querying the provider.
type ScoredStream struct {
	Stream
	Size int64
}
