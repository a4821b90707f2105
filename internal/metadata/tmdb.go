// TMDBProvider adapts The Movie Database's HTTP API to the Provider
// contract, grounded on the teacher's tmdb_client.go request idiom (rate
// limiting plus retry-with-backoff on a shared *http.Client), rebuilt on
// golang.org/x/time/rate and github.com/avast/retry-go/v4 instead of the
// teacher's hand-rolled mutex/sleep loop, matching the idiom
// internal/debrid already uses for its own provider clients.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"novastream/models"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// TMDBProvider resolves title/year/episode-count metadata from TMDB. Real
// identifier resolution across providers (imdb/tmdb/tvdb cross-walks,
// aliasing, artwork, trailers) is out of scope (§1): this is the minimal
// pure fingerprint-resolution function the pipeline needs.
type TMDBProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewTMDBProvider(apiKey string) *TMDBProvider {
	return &TMDBProvider{
		apiKey:  apiKey,
		baseURL: tmdbBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(40), 1), // TMDB's generous default rate limit
	}
}

type tmdbFindResponse struct {
	MovieResults []struct {
		ID int `json:"id"`
	} `json:"movie_results"`
	TVResults []struct {
		ID int `json:"id"`
	} `json:"tv_results"`
}

type tmdbMovieResponse struct {
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

type tmdbTVResponse struct {
	Name         string `json:"name"`
	FirstAirDate string `json:"first_air_date"`
	Seasons      []struct {
		SeasonNumber int `json:"season_number"`
		EpisodeCount int `json:"episode_count"`
	} `json:"seasons"`
}

func (p *TMDBProvider) Resolve(ctx context.Context, canonicalID string, itemType models.ItemType) (Record, error) {
	tmdbID, mediaType, err := p.resolveTMDBID(ctx, canonicalID, itemType)
	if err != nil {
		return Record{}, err
	}

	if mediaType == "movie" {
		var movie tmdbMovieResponse
		if err := p.get(ctx, fmt.Sprintf("/movie/%d", tmdbID), &movie); err != nil {
			return Record{}, err
		}
		return Record{Title: movie.Title, Year: yearOf(movie.ReleaseDate)}, nil
	}

	var tv tmdbTVResponse
	if err := p.get(ctx, fmt.Sprintf("/tv/%d", tmdbID), &tv); err != nil {
		return Record{}, err
	}
	counts := make(map[int]int, len(tv.Seasons))
	for _, s := range tv.Seasons {
		if s.SeasonNumber == 0 {
			continue // specials: never part of the regular-episode count
		}
		counts[s.SeasonNumber] = s.EpisodeCount
	}
	return Record{Title: tv.Name, Year: yearOf(tv.FirstAirDate), EpisodeCounts: counts}, nil
}

// resolveTMDBID accepts either an imdb id (tt\d+) or a bare tmdb numeric id
// as canonicalID, mirroring models.Item.CanonicalID's imdb-first priority.
func (p *TMDBProvider) resolveTMDBID(ctx context.Context, canonicalID string, itemType models.ItemType) (int, string, error) {
	mediaType := "movie"
	if itemType != models.ItemMovie {
		mediaType = "tv"
	}

	if !strings.HasPrefix(canonicalID, "tt") {
		var id int
		if _, err := fmt.Sscanf(canonicalID, "%d", &id); err != nil {
			return 0, "", fmt.Errorf("metadata: unresolvable canonical id %q", canonicalID)
		}
		return id, mediaType, nil
	}

	var found tmdbFindResponse
	endpoint := fmt.Sprintf("/find/%s?external_source=imdb_id", url.PathEscape(canonicalID))
	if err := p.get(ctx, endpoint, &found); err != nil {
		return 0, "", err
	}
	if mediaType == "movie" && len(found.MovieResults) > 0 {
		return found.MovieResults[0].ID, "movie", nil
	}
	if len(found.TVResults) > 0 {
		return found.TVResults[0].ID, "tv", nil
	}
	if len(found.MovieResults) > 0 {
		return found.MovieResults[0].ID, "movie", nil
	}
	return 0, "", fmt.Errorf("metadata: imdb id %q not found on tmdb", canonicalID)
}

func (p *TMDBProvider) get(ctx context.Context, path string, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	endpoint := p.baseURL + path + sep + "api_key=" + url.QueryEscape(p.apiKey)

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			resp, err := p.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return fmt.Errorf("metadata: tmdb request failed: %s", resp.Status)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("metadata: tmdb request failed: %s", resp.Status))
			}
			return json.NewDecoder(resp.Body).Decode(out)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
	)
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(date[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}
