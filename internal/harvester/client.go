// Package harvester implements the §6 Watchlist+Harvester (W2P) wire
// protocol client: one item per request, up to a 900s timeout, a 3-attempt
// cooldown budget, and the needs_rd_library_check fallback. Grounded on
// episode_validation.py/plex_watchlist.py's call shape and the teacher's
// HTTP-client-with-API-key idiom (services/debrid/alldebrid_client.go),
// adapted for a configurable header name rather than a fixed Bearer scheme.
package harvester

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"novastream/internal/debrid"
	"novastream/models"
)

const maxAttempts = 3

// cooldown is the park duration after an item exhausts its attempt budget
// (§6: `w2p_last_attempt`/`w2p_attempt_count`, capped at 3, 24h cooldown).
const cooldown = 24 * time.Hour

// Item is the wire shape sent to the harvester for one watchlist entry.
type Item struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	Type    string `json:"type"`
	Season  *int   `json:"season"`
	Episode *int   `json:"episode"`
}

type responseItem struct {
	Item                Item                      `json:"item"`
	Releases            []models.HarvestedRelease `json:"releases"`
	NeedsRDLibraryCheck bool                      `json:"needs_rd_library_check"`
}

type harvestResponse struct {
	Status         string         `json:"status"`
	ProcessedCount int            `json:"processed_count"`
	Items          []responseItem `json:"items"`
}

// Client calls the harvester's /riven/harvest-item endpoint.
type Client struct {
	BaseURL         string
	AuthHeaderName  string
	AuthHeaderValue string
	HTTPClient      *http.Client
}

// HarvestTitle resolves the title field sent in a harvester payload: when
// allowIMDbIDAsTitle is set and the item has an IMDb id, the id itself is
// sent as the title (§9 "IMDb-id-as-title capability flag"), mirroring the
// original's behavior but gated behind an explicit flag instead of applying
// it unconditionally to every request.
func HarvestTitle(title, imdbID string, allowIMDbIDAsTitle bool) string {
	if allowIMDbIDAsTitle && imdbID != "" {
		return imdbID
	}
	return title
}

func NewClient(baseURL, authHeaderName, authHeaderValue string) *Client {
	return &Client{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		AuthHeaderName:  authHeaderName,
		AuthHeaderValue: authHeaderValue,
		HTTPClient:      &http.Client{Timeout: 900 * time.Second},
	}
}

// Harvest issues one request for a single item (batching is explicitly
// disallowed by §6: "caused timeouts historically"). It returns the
// releases found and whether a needs_rd_library_check fallback was
// requested by the harvester.
func (c *Client) Harvest(ctx context.Context, item Item) ([]models.HarvestedRelease, bool, error) {
	payload := struct {
		Items []Item `json:"items"`
	}{Items: []Item{item}}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/riven/harvest-item", bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.AuthHeaderName != "" {
		req.Header.Set(c.AuthHeaderName, c.AuthHeaderValue)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, false, fmt.Errorf("harvester: request failed with status %d", resp.StatusCode)
	}

	var parsed harvestResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, false, err
	}
	if len(parsed.Items) == 0 {
		return nil, false, nil
	}
	first := parsed.Items[0]
	return first.Releases, first.NeedsRDLibraryCheck, nil
}

// ShouldAttempt reports whether aliases still permits a harvester call: the
// attempt budget is not spent, and (once at least one attempt has been
// made) the 24h cooldown since the last attempt has elapsed.
func ShouldAttempt(aliases models.Aliases, now time.Time) bool {
	if aliases.ExhaustedHarvestAttempts() {
		return false
	}
	if aliases.W2PLastAttempt == nil {
		return true
	}
	return now.After(aliases.W2PLastAttempt.Add(cooldown))
}

// RecordAttempt increments the attempt counter and stamps the attempt time,
// mutating aliases in place.
func RecordAttempt(aliases *models.Aliases, now time.Time) {
	aliases.W2PAttemptCount++
	stamped := now
	aliases.W2PLastAttempt = &stamped
}

// LibraryCheckFallback implements the needs_rd_library_check fallback (§6):
// query the current debrid provider's downloads and keep any whose filename
// case-insensitively contains the item title, converting matches into
// HarvestedReleases tagged with source_label "rd-library".
func LibraryCheckFallback(downloads []debrid.DownloadEntry, title string) []models.HarvestedRelease {
	if title == "" {
		return nil
	}
	needle := strings.ToLower(title)

	var releases []models.HarvestedRelease
	for _, d := range downloads {
		if !strings.Contains(strings.ToLower(d.Filename), needle) {
			continue
		}
		releases = append(releases, models.HarvestedRelease{
			RawTitle:    d.Filename,
			InfoHash:    strings.ToLower(d.Hash),
			SizeBytes:   d.Bytes,
			SourceLabel: "rd-library",
		})
	}
	return releases
}
