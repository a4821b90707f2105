package debrid

import (
	"context"
	"strings"

	"novastream/models"
)

// DebridLinkClient implements Provider against the Debrid-Link REST API.
type DebridLinkClient struct {
	http httpClient
}

var _ Provider = (*DebridLinkClient)(nil)

func NewDebridLinkClient(apiKey, baseURL string) *DebridLinkClient {
	if baseURL == "" {
		baseURL = "https://debrid-link.com/api/v2"
	}
	return &DebridLinkClient{http: newHTTPClient(apiKey, baseURL, 2)}
}

func (c *DebridLinkClient) Name() string { return "debridlink" }

type dlSeedboxAddResponse struct {
	Value struct {
		ID    string `json:"id"`
		Hash  string `json:"hashString"`
		Files []struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
		} `json:"files"`
	} `json:"value"`
	Success bool `json:"success"`
}

// InstantAvailability on Debrid-Link is implicit in the seedbox add
// response (no separate cache-check endpoint): a successful add that already
// lists files is treated as cached; a failed add or one with no files is
// ErrNotCached. downloadPercent is not checked. Adding a torrent
// purely to probe availability is itself a pre-validation probe (§4.3) and
// must be cleaned up by DeleteTorrent if unused.
func (c *DebridLinkClient) InstantAvailability(ctx context.Context, infohash string, _ models.ItemType) (*models.TorrentContainer, error) {
	var resp dlSeedboxAddResponse
	body := map[string]string{"url": "magnet:?xt=urn:btih:" + strings.ToLower(infohash)}
	if err := c.http.doJSON(ctx, "POST", "/seedbox/add", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || len(resp.Value.Files) == 0 {
		return nil, ErrNotCached
	}

	container := &models.TorrentContainer{
		InfoHash:     strings.ToLower(infohash),
		TorrentID:    resp.Value.ID,
		PreValidated: true,
	}
	for _, f := range resp.Value.Files {
		container.Files = append(container.Files, models.TorrentFile{Filename: f.Name, Size: f.Size})
		container.TotalSize += f.Size
	}
	return container, nil
}

func (c *DebridLinkClient) AddTorrent(ctx context.Context, infohash string) (string, error) {
	container, err := c.InstantAvailability(ctx, infohash, "")
	if err != nil {
		return "", err
	}
	return container.TorrentID, nil
}

func (c *DebridLinkClient) GetTorrentInfo(ctx context.Context, torrentID string) (*models.TorrentContainer, error) {
	var resp dlSeedboxAddResponse
	if err := c.http.doJSON(ctx, "GET", "/seedbox/"+torrentID, nil, &resp); err != nil {
		return nil, err
	}
	container := &models.TorrentContainer{InfoHash: strings.ToLower(resp.Value.Hash), TorrentID: torrentID}
	for _, f := range resp.Value.Files {
		container.Files = append(container.Files, models.TorrentFile{Filename: f.Name, Size: f.Size})
		container.TotalSize += f.Size
	}
	return container, nil
}

// SelectFiles is a no-op on Debrid-Link: the seedbox add already selects
// every file in the torrent.
func (c *DebridLinkClient) SelectFiles(_ context.Context, _ string, _ []string) error {
	return nil
}

func (c *DebridLinkClient) DeleteTorrent(ctx context.Context, torrentID string) error {
	return c.http.doJSON(ctx, "DELETE", "/seedbox/"+torrentID+"/remove", nil, nil)
}

type dlDownloadEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Hash string `json:"hashString"`
}

func (c *DebridLinkClient) GetDownloads(ctx context.Context) ([]DownloadEntry, error) {
	var resp []dlDownloadEntry
	if err := c.http.doJSON(ctx, "GET", "/seedbox/list", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]DownloadEntry, 0, len(resp))
	for _, d := range resp {
		out = append(out, DownloadEntry{Filename: d.Name, Bytes: d.Size, Hash: d.Hash})
	}
	return out, nil
}

type dlAccountInfo struct {
	Username   string `json:"pseudo"`
	Premium    int64  `json:"accountType"`
	PremiumEnd int64  `json:"premiumLeft"`
}

func (c *DebridLinkClient) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	var resp dlAccountInfo
	if err := c.http.doJSON(ctx, "GET", "/account/infos", nil, &resp); err != nil {
		return nil, err
	}
	return &UserInfo{Username: resp.Username, IsPremium: resp.Premium > 0, PointsOrGB: resp.PremiumEnd}, nil
}
