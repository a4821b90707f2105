// Package debrid implements the debrid provider contract (§6), a per-
// provider circuit breaker (§4.3, §7, §9), and HTTP-backed adapters for
// RealDebrid, Debrid-Link, and AllDebrid, grounded on the teacher's
// services/debrid/alldebrid_client.go registry-of-instances pattern.
package debrid

import (
	"context"
	"errors"

	"novastream/models"
)

// ErrCircuitBreakerOpen is raised by a Provider when it has temporarily
// stopped issuing requests to its remote. The scheduler/orchestrator must
// treat this as a delay, never as grounds to blacklist a Stream (§7, §9).
var ErrCircuitBreakerOpen = errors.New("debrid: circuit breaker open")

// ErrNotCached is raised when instant_availability reports the content is
// not already cached; the orchestrator skips this provider and tries the
// next one (§7).
var ErrNotCached = errors.New("debrid: not cached")

// UserInfo is the provider account summary from get_user_info.
type UserInfo struct {
	Username    string
	IsPremium   bool
	ExpiresAt   string
	PointsOrGB  int64
}

// DownloadEntry is one item from get_downloads(), used by the harvester's
// needs_rd_library_check fallback (§6).
type DownloadEntry struct {
	Filename string
	Bytes    int64
	Hash     string
}

// Provider is the contract every debrid backend (RealDebrid, Debrid-Link,
// AllDebrid) must satisfy (§6 "Debrid provider contract").
type Provider interface {
	Name() string

	InstantAvailability(ctx context.Context, infohash string, itemType models.ItemType) (*models.TorrentContainer, error)
	AddTorrent(ctx context.Context, infohash string) (torrentID string, err error)
	GetTorrentInfo(ctx context.Context, torrentID string) (*models.TorrentContainer, error)
	SelectFiles(ctx context.Context, torrentID string, fileIDs []string) error
	DeleteTorrent(ctx context.Context, torrentID string) error
	GetDownloads(ctx context.Context) ([]DownloadEntry, error)
	GetUserInfo(ctx context.Context) (*UserInfo, error)
}
