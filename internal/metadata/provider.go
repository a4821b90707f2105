// Package metadata defines the fingerprint-resolution contract the pipeline
// needs from an external metadata provider. Provider is a pure
// `fingerprint -> results` / `id -> record` contract; tmdb.go implements it
// against the TMDB API and main.go wires that implementation. No TVDB or
// Trakt client is included.
package metadata

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"novastream/models"
)

// Record is the subset of a metadata lookup the pipeline acts on: title,
// year, and (for shows) the per-season episode counts the Episode Validator
// needs for its gap calculation (§4.8).
type Record struct {
	Title         string
	Year          int
	EpisodeCounts map[int]int // season number -> episode count
}

// Provider resolves a canonical id (imdb/tmdb/tvdb, whichever CanonicalID()
// returns) plus item type to a Record.
type Provider interface {
	Resolve(ctx context.Context, canonicalID string, itemType models.ItemType) (Record, error)
}

type cacheEntry struct {
	record   Record
	fetchedAt time.Time
}

// CachingProvider wraps a Provider with a bounded in-memory LRU cache keyed
// by (canonicalID, itemType), grounded on services/metadata's
// mdblistClient/fileCache TTL-cache idiom — but bounded by entry count
// rather than unbounded-map-plus-manual-expiry, since this process is
// expected to run far longer between restarts than the teacher's request-
// scoped cache.
type CachingProvider struct {
	inner Provider
	ttl   time.Duration
	cache *lru.Cache[string, cacheEntry]
	now   func() time.Time
}

// NewCachingProvider wraps inner with an LRU cache of the given size and
// TTL. size <= 0 defaults to 512 entries; ttl <= 0 defaults to 24h, matching
// the teacher's default mdblist cache TTL.
func NewCachingProvider(inner Provider, size int, ttl time.Duration) (*CachingProvider, error) {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &CachingProvider{inner: inner, ttl: ttl, cache: cache, now: time.Now}, nil
}

func cacheKey(canonicalID string, itemType models.ItemType) string {
	return string(itemType) + ":" + canonicalID
}

func (c *CachingProvider) Resolve(ctx context.Context, canonicalID string, itemType models.ItemType) (Record, error) {
	key := cacheKey(canonicalID, itemType)
	if entry, ok := c.cache.Get(key); ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.record, nil
	}

	record, err := c.inner.Resolve(ctx, canonicalID, itemType)
	if err != nil {
		return Record{}, err
	}
	c.cache.Add(key, cacheEntry{record: record, fetchedAt: c.now()})
	return record, nil
}

// EpisodeCountAdapter adapts a Provider to internal/validator.MetadataProvider,
// resolving the show once and reading off the requested season's count.
type EpisodeCountAdapter struct {
	Provider Provider
}

func (a EpisodeCountAdapter) EpisodeCount(ctx context.Context, show *models.Item, seasonNumber int) (int, error) {
	record, err := a.Provider.Resolve(ctx, show.CanonicalID(), models.ItemShow)
	if err != nil {
		return 0, err
	}
	return record.EpisodeCounts[seasonNumber], nil
}
