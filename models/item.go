// Package models defines the core acquisition-pipeline entities: items,
// streams, filesystem entries, and ranking profiles.
package models

import "time"

// ItemType distinguishes the four MediaItem variants.
type ItemType string

const (
	ItemMovie   ItemType = "movie"
	ItemShow    ItemType = "show"
	ItemSeason  ItemType = "season"
	ItemEpisode ItemType = "episode"
)

// State is a derived value, never persisted directly. See statemachine.Derive.
type State string

const (
	StateUnknown    State = "unknown"
	StateRequested  State = "requested"
	StateIndexed    State = "indexed"
	StateScraped    State = "scraped"
	StateDownloaded State = "downloaded"
	StateSymlinked  State = "symlinked"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StatePaused     State = "paused"
	StateOngoing    State = "ongoing"
	StateUnreleased State = "unreleased"
)

// ActiveStream is a weak (infohash, torrent_id) pair; it is not a pointer
// and may transiently reference a non-present entry between download and
// VFS registration.
type ActiveStream struct {
	InfoHash       string
	ProviderTorrentID string
}

// HarvestedRelease is one release record returned by the harvester (W2P) or
// attached directly to an item's aliases ahead of a harvester call.
type HarvestedRelease struct {
	Title       string `json:"title,omitempty"`
	RawTitle    string `json:"raw_title,omitempty"`
	InfoHash    string `json:"infohash,omitempty"`
	Magnet      string `json:"magnet,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	SourceLabel string `json:"source_label,omitempty"`
	Season      *int   `json:"season,omitempty"`
}

// Aliases carries free-form harvester bookkeeping alongside an item.
type Aliases struct {
	W2PReleases     []HarvestedRelease `json:"w2p_releases,omitempty"`
	W2PLastAttempt  *time.Time         `json:"w2p_last_attempt,omitempty"`
	W2PAttemptCount int                `json:"w2p_attempt_count,omitempty"`
}

// ExhaustedHarvestAttempts reports whether the item's harvester attempt
// budget (3) is spent.
func (a Aliases) ExhaustedHarvestAttempts() bool {
	return a.W2PAttemptCount >= 3
}

// Item is a MediaItem: Movie, Show, Season, or Episode.
type Item struct {
	ID     string
	Type   ItemType
	ImdbID string
	TmdbID string
	TvdbID string

	Title     string
	Year      int
	AiredAt   *time.Time
	Country   string
	IsAnime   bool

	// Tree relations. Leaves (Movie, Episode) have no Children.
	ParentID string
	Children []string

	// Show/Season/Episode numbering. Zero for movies.
	SeasonNumber  int
	EpisodeNumber int

	Streams            []Stream
	BlacklistedStreams map[string]struct{}
	ActiveStream       *ActiveStream
	FilesystemEntries  []MediaEntry

	Aliases Aliases

	ScrapedAt *time.Time

	// ValidatedAt marks that a Show/Season's postprocessing pass (the
	// Episode Validator) has run at least once; until set, a fully
	// downloaded parent reports Symlinked rather than Completed so routing
	// visits PostProcessing before Completed (§4.9: "Filesystem ->
	// PostProcessing -> Completed"). Unused by leaves, which fold straight
	// to Completed since they have no postprocessing step of their own.
	ValidatedAt *time.Time

	// FailureReason is set when the derived state is Failed.
	FailureReason string
	Paused        bool
}

// CanonicalID returns the first non-empty of imdb_id, tmdb_id, tvdb_id.
func (i *Item) CanonicalID() string {
	switch {
	case i.ImdbID != "":
		return i.ImdbID
	case i.TmdbID != "":
		return i.TmdbID
	case i.TvdbID != "":
		return i.TvdbID
	default:
		return ""
	}
}

// IsLeaf reports whether the item owns filesystem entries directly (Movie,
// Episode); Show/Season items expand to their leaves.
func (i *Item) IsLeaf() bool {
	return i.Type == ItemMovie || i.Type == ItemEpisode
}

// IsBlacklisted reports whether infohash has already been rejected for this
// item and must never be reconsidered.
func (i *Item) IsBlacklisted(infohash string) bool {
	if i.BlacklistedStreams == nil {
		return false
	}
	_, ok := i.BlacklistedStreams[infohash]
	return ok
}

// Blacklist records infohash as permanently rejected for this item.
func (i *Item) Blacklist(infohash string) {
	if i.BlacklistedStreams == nil {
		i.BlacklistedStreams = make(map[string]struct{})
	}
	i.BlacklistedStreams[infohash] = struct{}{}
}
