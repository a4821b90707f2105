package debrid

import (
	"context"
	"strconv"
	"strings"

	"novastream/models"
)

// RealDebridClient implements Provider against the RealDebrid REST API.
type RealDebridClient struct {
	http httpClient
}

var _ Provider = (*RealDebridClient)(nil)

func NewRealDebridClient(apiKey, baseURL string) *RealDebridClient {
	if baseURL == "" {
		baseURL = "https://api.real-debrid.com/rest/1.0"
	}
	return &RealDebridClient{http: newHTTPClient(apiKey, baseURL, 2)}
}

func (c *RealDebridClient) Name() string { return "realdebrid" }

type rdInstantAvailabilityResponse map[string]struct {
	RD []map[string]rdFile `json:"rd"`
}

type rdFile struct {
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
}

func (c *RealDebridClient) InstantAvailability(ctx context.Context, infohash string, _ models.ItemType) (*models.TorrentContainer, error) {
	var resp rdInstantAvailabilityResponse
	path := "/torrents/instantAvailability/" + strings.ToLower(infohash)
	if err := c.http.doJSON(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}

	entry, ok := resp[strings.ToLower(infohash)]
	if !ok || len(entry.RD) == 0 {
		return nil, ErrNotCached
	}

	container := &models.TorrentContainer{InfoHash: strings.ToLower(infohash), PreValidated: true}
	for fileID, f := range entry.RD[0] {
		container.Files = append(container.Files, models.TorrentFile{
			FileID:   fileID,
			Filename: f.Filename,
			Size:     f.Filesize,
		})
		container.TotalSize += f.Filesize
	}
	return container, nil
}

type rdAddMagnetResponse struct {
	ID string `json:"id"`
}

func (c *RealDebridClient) AddTorrent(ctx context.Context, infohash string) (string, error) {
	magnet := "magnet:?xt=urn:btih:" + strings.ToLower(infohash)
	var resp rdAddMagnetResponse
	body := map[string]string{"magnet": magnet}
	if err := c.http.doJSON(ctx, "POST", "/torrents/addMagnet", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

type rdTorrentInfoResponse struct {
	Hash  string `json:"hash"`
	Bytes int64  `json:"bytes"`
	Files []struct {
		ID       int    `json:"id"`
		Path     string `json:"path"`
		Bytes    int64  `json:"bytes"`
		Selected int    `json:"selected"`
	} `json:"files"`
}

func (c *RealDebridClient) GetTorrentInfo(ctx context.Context, torrentID string) (*models.TorrentContainer, error) {
	var resp rdTorrentInfoResponse
	if err := c.http.doJSON(ctx, "GET", "/torrents/info/"+torrentID, nil, &resp); err != nil {
		return nil, err
	}

	container := &models.TorrentContainer{InfoHash: strings.ToLower(resp.Hash), TorrentID: torrentID, TotalSize: resp.Bytes}
	for _, f := range resp.Files {
		container.Files = append(container.Files, models.TorrentFile{
			FileID:   strconv.Itoa(f.ID),
			Filename: f.Path,
			Size:     f.Bytes,
		})
	}
	return container, nil
}

func (c *RealDebridClient) SelectFiles(ctx context.Context, torrentID string, fileIDs []string) error {
	body := map[string]string{"files": strings.Join(fileIDs, ",")}
	return c.http.doJSON(ctx, "POST", "/torrents/selectFiles/"+torrentID, body, nil)
}

func (c *RealDebridClient) DeleteTorrent(ctx context.Context, torrentID string) error {
	return c.http.doJSON(ctx, "DELETE", "/torrents/delete/"+torrentID, nil, nil)
}

type rdDownloadEntry struct {
	Filename string `json:"filename"`
	Bytes    int64  `json:"filesize"`
	Hash     string `json:"hash"`
}

func (c *RealDebridClient) GetDownloads(ctx context.Context) ([]DownloadEntry, error) {
	var resp []rdDownloadEntry
	if err := c.http.doJSON(ctx, "GET", "/downloads", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]DownloadEntry, 0, len(resp))
	for _, d := range resp {
		out = append(out, DownloadEntry{Filename: d.Filename, Bytes: d.Bytes, Hash: d.Hash})
	}
	return out, nil
}

type rdUserResponse struct {
	Username string `json:"username"`
	Type     string `json:"type"`
	Expiration string `json:"expiration"`
	Points   int64  `json:"points"`
}

func (c *RealDebridClient) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	var resp rdUserResponse
	if err := c.http.doJSON(ctx, "GET", "/user", nil, &resp); err != nil {
		return nil, err
	}
	return &UserInfo{
		Username:   resp.Username,
		IsPremium:  resp.Type == "premium",
		ExpiresAt:  resp.Expiration,
		PointsOrGB: resp.Points,
	}, nil
}
