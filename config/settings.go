// Package config loads and persists the pipeline's JSON settings file,
// in the same single-file, migrate-on-load style the rest of the stack uses.
package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"novastream/models"
)

// Settings is the application configuration persisted to disk.
type Settings struct {
	Log LogConfig `json:"log"`

	DebridProviders []DebridProviderConfig `json:"debridProviders"`
	Scrapers        []ScraperConfig        `json:"scrapers"`
	Harvester       HarvesterConfig        `json:"harvester"`
	Metadata        MetadataSettings       `json:"metadata"`

	RankingProfiles map[string]models.RankingProfile `json:"rankingProfiles"`
	PathProfiles    models.PathProfiles               `json:"pathProfiles"`

	KeepVersions int `json:"keepVersions"`

	// SymlinkLibraryPath mirrors RIVEN_SYMLINK_LIBRARY_PATH: when set, leaf
	// MediaEntries are additionally projected as symlinks into this tree
	// after VFS registration (§6, §9 "symlink materialization").
	SymlinkLibraryPath string `json:"symlinkLibraryPath,omitempty"`

	Scheduler SchedulerSettings `json:"scheduler"`
}

type LogConfig struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
}

// DebridProviderConfig configures one of RealDebrid, Debrid-Link, AllDebrid.
type DebridProviderConfig struct {
	Name    string `json:"name"`
	Type    string `json:"type"` // realdebrid | debridlink | alldebrid
	APIKey  string `json:"apiKey"`
	BaseURL string `json:"baseUrl,omitempty"`
	Enabled bool   `json:"enabled"`
}

// ScraperConfig configures one fan-in scraper (mirrors the teacher's
// TorrentScraperConfig shape).
type ScraperConfig struct {
	Name    string            `json:"name"`
	Type    string            `json:"type"` // torrentio | jackett | zilean | aiostreams | harvested
	URL     string            `json:"url,omitempty"`
	APIKey  string            `json:"apiKey,omitempty"`
	Enabled bool              `json:"enabled"`
	Options map[string]string `json:"options,omitempty"`
}

// HarvesterConfig configures the W2P harvester client.
type HarvesterConfig struct {
	Enabled         bool   `json:"enabled"`
	BaseURL         string `json:"baseUrl,omitempty"`
	AuthHeaderName  string `json:"authHeaderName,omitempty"`
	AuthHeaderValue string `json:"authHeaderValue,omitempty"`
	// TimeoutSeconds caps a single-item request; the spec allows up to 900.
	TimeoutSeconds int `json:"timeoutSeconds"`
	MaxAttempts    int `json:"maxAttempts"`
}

type MetadataSettings struct {
	TMDBAPIKey string `json:"tmdbApiKey,omitempty"`
	Language   string `json:"language,omitempty"`

	// AllowIMDbIDAsTitle is the capability flag gating the §9 "replace
	// title with IMDb id for direct-navigation" behavior; harvester-
	// specific, never applied unconditionally.
	AllowIMDbIDAsTitle bool `json:"allowImdbIdAsTitle,omitempty"`
}

type SchedulerSettings struct {
	WorkerCount int `json:"workerCount"`
}

func DefaultSettings() Settings {
	return Settings{
		Log: LogConfig{MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 14},
		Harvester: HarvesterConfig{
			TimeoutSeconds: 900,
			MaxAttempts:    3,
		},
		RankingProfiles: map[string]models.RankingProfile{
			"default": {
				Name:                "default",
				KeepVersionsPerItem: 1,
				BucketLimit:         3,
				MaxResolution:       "2160p",
			},
		},
		PathProfiles: models.PathProfiles{
			Paths:          map[string]string{},
			DefaultProfile: "default",
		},
		KeepVersions: 1,
		Scheduler:    SchedulerSettings{WorkerCount: 4},
	}
}

// Manager loads and persists Settings to a single JSON file on disk,
// creating defaults on first run and feature-detecting older shapes before
// acting on them (no blind schema migrations).
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures the settings file's parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk, or creates it with defaults if
// missing.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}

	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var raw map[string]json.RawMessage
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return Settings{}, err
	}

	settings := DefaultSettings()
	data, err := json.Marshal(raw)
	if err != nil {
		return Settings{}, err
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}

	if settings.RankingProfiles == nil || len(settings.RankingProfiles) == 0 {
		settings.RankingProfiles = DefaultSettings().RankingProfiles
	}
	if strings.TrimSpace(settings.PathProfiles.DefaultProfile) == "" {
		settings.PathProfiles.DefaultProfile = "default"
	}

	return settings, nil
}

// Save writes settings.json atomically (temp file + rename).
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}

	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, m.path)
}
