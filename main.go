package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"novastream/config"
	"novastream/internal/debrid"
	"novastream/internal/events"
	"novastream/internal/harvester"
	"novastream/internal/metadata"
	"novastream/internal/pipeline"
	"novastream/internal/store"
	"novastream/internal/vfs"
	"novastream/internal/watchlist"
	"novastream/models"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	storageDir := flag.String("storage", "", "override item storage directory from config")
	watchlistFile := flag.String("watchlist", "", "path to a JSON file of watchlist requests to ingest at startup (§1/§3 W2P content source)")
	flag.Parse()

	log.Println("acquisition pipeline starting...")

	configPath := os.Getenv("RIVEN_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSizeMB,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAgeDays,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("logging to file: %s", settings.Log.File)
		}
	}

	itemStorageDir := *storageDir
	if itemStorageDir == "" {
		itemStorageDir = filepath.Join("data", "items")
	}
	itemStore, err := store.NewItemStore(itemStorageDir)
	if err != nil {
		log.Fatalf("failed to open item store: %v", err)
	}

	providers := buildDebridProviders(settings.DebridProviders)
	if len(providers) == 0 {
		log.Printf("warning: no debrid providers configured; downloads will never succeed")
	}

	var harvesterClient *harvester.Client
	if settings.Harvester.Enabled {
		harvesterClient = harvester.NewClient(settings.Harvester.BaseURL, settings.Harvester.AuthHeaderName, settings.Harvester.AuthHeaderValue)
		if settings.Harvester.TimeoutSeconds > 0 {
			harvesterClient.HTTPClient.Timeout = time.Duration(settings.Harvester.TimeoutSeconds) * time.Second
		}
	}

	metadataProvider, err := metadata.NewCachingProvider(
		metadata.NewTMDBProvider(settings.Metadata.TMDBAPIKey),
		1024, 24*time.Hour,
	)
	if err != nil {
		log.Fatalf("failed to build metadata provider: %v", err)
	}

	host := vfs.NewMemHost()
	var symlinks *vfs.SymlinkProjector
	if settings.SymlinkLibraryPath != "" {
		symlinks = vfs.NewSymlinkProjector(afero.NewOsFs(), settings.SymlinkLibraryPath)
	}

	profiles := rankingProfilesInOrder(settings.RankingProfiles, settings.PathProfiles.DefaultProfile)

	pl := &pipeline.Pipeline{
		Store:              itemStore,
		Providers:          providers,
		Harvester:          harvesterClient,
		HarvesterEnabled:   settings.Harvester.Enabled,
		Metadata:           metadataProvider,
		Host:               host,
		Symlinks:           symlinks,
		Profiles:           profiles,
		PathProfiles:       settings.PathProfiles,
		AllowIMDbIDAsTitle: settings.Metadata.AllowIMDbIDAsTitle,
		KeepVersions:       settings.KeepVersions,
		DownloadRoot:       filepath.Join(itemStorageDir, "downloads"),
	}

	onFailure := func(itemID string, err error) {
		item, ok := itemStore.Get(itemID)
		if !ok {
			log.Printf("event manager: item %s failed but is no longer in the store: %v", itemID, err)
			return
		}
		item.FailureReason = err.Error()
		if putErr := itemStore.Put(item); putErr != nil {
			log.Printf("event manager: failed to persist failure for item %s: %v", itemID, putErr)
		}
	}

	workerCount := settings.Scheduler.WorkerCount
	manager := events.NewManager(pl.Handle, onFailure, workerCount)

	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)

	if *watchlistFile != "" {
		watchlistSvc := &watchlist.Service{
			Store:              itemStore,
			Manager:            manager,
			Harvester:          harvesterClient,
			HarvesterEnabled:   settings.Harvester.Enabled,
			AllowIMDbIDAsTitle: settings.Metadata.AllowIMDbIDAsTitle,
		}
		if err := ingestWatchlistFile(ctx, watchlistSvc, *watchlistFile); err != nil {
			log.Printf("warning: watchlist ingestion from %s failed: %v", *watchlistFile, err)
		}
	}

	seedExistingItems(itemStore, manager)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	log.Println("shutdown signal received, draining event manager...")
	cancel()
	manager.Stop()
	log.Println("shutdown complete")
}

// buildDebridProviders constructs a circuit-breaker-wrapped Provider per
// enabled entry in settings.DebridProviders, skipping unknown/misconfigured
// entries with a warning rather than aborting startup over one bad provider.
func buildDebridProviders(configs []config.DebridProviderConfig) []*debrid.CircuitBreaker {
	var out []*debrid.CircuitBreaker
	for _, c := range configs {
		if !c.Enabled {
			continue
		}
		built, err := debrid.Build(c.Type, c.APIKey, c.BaseURL)
		if err != nil {
			log.Printf("warning: skipping debrid provider %q: %v", c.Name, err)
			continue
		}
		breaker, ok := built.(*debrid.CircuitBreaker)
		if !ok {
			log.Printf("warning: skipping debrid provider %q: unexpected provider type", c.Name)
			continue
		}
		out = append(out, breaker)
	}
	return out
}

// rankingProfilesInOrder flattens the config's name-keyed profile map into
// the priority-ordered slice the Scraper Fan-in expects (§4.1/§4.2), with
// defaultProfile sorted first when present and every other profile
// following in deterministic, alphabetical-by-name order. Map iteration
// order in Go is randomized per run, so a bare range over configured would
// produce a different fan-in order on every restart.
func rankingProfilesInOrder(configured map[string]models.RankingProfile, defaultProfile string) []models.RankingProfile {
	names := make([]string, 0, len(configured))
	for name := range configured {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.RankingProfile, 0, len(configured))
	if p, ok := configured[defaultProfile]; ok {
		out = append(out, p)
	}
	for _, name := range names {
		if name == defaultProfile {
			continue
		}
		out = append(out, configured[name])
	}
	return out
}

// ingestWatchlistFile implements the minimal §1/§3 W2P content-source entry
// point: a JSON array of watchlist.Request values, read once at startup and
// ingested in order. A source wanting a live feed (Plex watchlist sync,
// a webhook) plugs in by calling watchlist.Service.Ingest the same way.
func ingestWatchlistFile(ctx context.Context, svc *watchlist.Service, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var requests []watchlist.Request
	if err := json.Unmarshal(data, &requests); err != nil {
		return err
	}
	for _, req := range requests {
		if _, err := svc.Ingest(ctx, req, time.Now()); err != nil {
			log.Printf("warning: skipping watchlist entry %q: %v", req.Key(), err)
		}
	}
	return nil
}

// seedExistingItems re-enqueues every currently-stored item at startup
// (e.g. after a crash or restart), since state is derived rather than
// tracked by an in-flight event and nothing else will re-trigger routing.
func seedExistingItems(itemStore *store.ItemStore, manager *events.Manager) {
	for _, item := range itemStore.All() {
		manager.Enqueue(events.NewEvent("startup", item.ID, time.Time{}))
	}
}
