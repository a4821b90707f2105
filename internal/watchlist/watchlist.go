// Package watchlist implements the W2P (Watchlist+Harvester) content-source
// entry point (§1/§3): items are created here, not by the Scraper Fan-in,
// with `w2p_releases` optionally pre-attached via one harvester call ahead
// of the first Indexed pass. Grounded on the upsert/idempotent-by-key shape
// of the teacher's backend/services/watchlist/service.go (AddOrUpdate keyed
// by "mediaType:id"), adapted from a user-scoped store to the single
// acquisition-pipeline ItemStore.
package watchlist

import (
	"context"
	"errors"
	"strings"
	"time"

	"novastream/internal/events"
	"novastream/internal/harvester"
	"novastream/models"
)

var (
	ErrIDRequired        = errors.New("watchlist: id is required")
	ErrMediaTypeRequired = errors.New("watchlist: media type is required")
)

// Store is the subset of store.ItemStore the ingestion path needs.
type Store interface {
	Get(id string) (*models.Item, bool)
	Put(item *models.Item) error
}

// Enqueuer is the subset of events.Manager the ingestion path needs.
type Enqueuer interface {
	Enqueue(e events.Event)
}

// HarvesterClient is the subset of harvester.Client the ingestion path needs.
type HarvesterClient interface {
	Harvest(ctx context.Context, item harvester.Item) ([]models.HarvestedRelease, bool, error)
}

// Request is one watchlist add, equivalent to the teacher's
// models.WatchlistUpsert trimmed to what the acquisition pipeline needs to
// start a Requested item.
type Request struct {
	ID        string `json:"id"`        // imdb/tmdb/tvdb id, whichever the source provides
	MediaType string `json:"mediaType"` // "movie" | "show"
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
}

// Key returns the store id for a request: "<mediaType>:<id>", mirroring the
// teacher's WatchlistUpsert.Key.
func (r Request) Key() string {
	return strings.ToLower(strings.TrimSpace(r.MediaType)) + ":" + r.ID
}

// Service ingests watchlist requests into the ItemStore as Requested items,
// pre-attaching harvester releases when enabled.
type Service struct {
	Store              Store
	Manager            Enqueuer
	Harvester          HarvesterClient
	HarvesterEnabled   bool
	AllowIMDbIDAsTitle bool
}

// Ingest implements §1/§3's W2P content-source path: resolve or create the
// item for req, optionally make one harvester call to pre-attach
// w2p_releases (§6 attempt budget applies from the first call), persist,
// and enqueue it for routing. Idempotent: re-ingesting an id already in the
// store returns the existing item without a second harvester call.
func (s *Service) Ingest(ctx context.Context, req Request, now time.Time) (*models.Item, error) {
	if strings.TrimSpace(req.ID) == "" {
		return nil, ErrIDRequired
	}
	mediaType := strings.ToLower(strings.TrimSpace(req.MediaType))
	if mediaType == "" {
		return nil, ErrMediaTypeRequired
	}

	key := mediaType + ":" + req.ID
	if existing, ok := s.Store.Get(key); ok {
		return existing, nil
	}

	itemType := models.ItemShow
	if mediaType == "movie" {
		itemType = models.ItemMovie
	}

	item := &models.Item{
		ID:    key,
		Type:  itemType,
		Title: req.Title,
		Year:  req.Year,
	}
	switch {
	case strings.HasPrefix(req.ID, "tt"):
		item.ImdbID = req.ID
	case itemType == models.ItemMovie:
		item.TmdbID = req.ID
	default:
		item.TvdbID = req.ID
	}

	if s.HarvesterEnabled && s.Harvester != nil && harvester.ShouldAttempt(item.Aliases, now) {
		releases, _, err := s.Harvester.Harvest(ctx, harvester.Item{
			ID:    item.CanonicalID(),
			Title: harvester.HarvestTitle(item.Title, item.ImdbID, s.AllowIMDbIDAsTitle),
			Year:  item.Year,
			Type:  mediaType,
		})
		harvester.RecordAttempt(&item.Aliases, now)
		if err == nil {
			item.Aliases.W2PReleases = releases
		}
	}

	if err := s.Store.Put(item); err != nil {
		return nil, err
	}
	if s.Manager != nil {
		s.Manager.Enqueue(events.NewEvent("watchlist", item.ID, now))
	}
	return item, nil
}
