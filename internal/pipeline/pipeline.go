// Package pipeline wires every internal/ package into the single per-item
// events.Handler the Event Manager dispatches, grounded on the teacher's
// main.go service-construction style (construct each service, wire its
// dependencies on the next) but generalized from an HTTP handler graph into
// a background event-loop bootstrap (§2: "a single long-running process
// built around an event loop over per-item events").
package pipeline

import (
	"context"
	"fmt"
	"time"

	"novastream/internal/debrid"
	"novastream/internal/events"
	"novastream/internal/harvester"
	"novastream/internal/metadata"
	"novastream/internal/orchestrator"
	"novastream/internal/scrape"
	"novastream/internal/statemachine"
	"novastream/internal/store"
	"novastream/internal/validator"
	"novastream/internal/vfs"
	"novastream/models"
)

// Pipeline holds every constructed dependency the event Handler needs.
type Pipeline struct {
	Store     *store.ItemStore
	Providers []*debrid.CircuitBreaker
	Harvester *harvester.Client
	Metadata  metadata.Provider
	Host      vfs.Host
	Symlinks  *vfs.SymlinkProjector // nil when no symlink library path is configured
	Scrapers     []scrape.Scraper
	Profiles     []models.RankingProfile // in priority order
	PathProfiles models.PathProfiles

	HarvesterEnabled   bool
	AllowIMDbIDAsTitle bool
	KeepVersions       int
	DownloadRoot       string
}

// Handle implements events.Handler: load the item, derive its state, and
// dispatch to the service the state machine names (§4.9 routing). Every
// event carries exactly one item_id and the Event Manager guarantees at
// most one in-flight Handle call per item_id (§5).
func (p *Pipeline) Handle(ctx context.Context, itemID string) ([]events.Reenqueue, error) {
	item, ok := p.Store.Get(itemID)
	if !ok {
		return nil, fmt.Errorf("pipeline: item %s not found", itemID)
	}

	switch statemachine.NextService(p.deriveState(item)) {
	case "indexer":
		return p.index(ctx, item)
	case "scraper":
		return p.scrapeItem(ctx, item)
	case "downloader":
		return p.download(ctx, item)
	case "filesystem":
		return p.materialize(item)
	case "postprocessing":
		return p.postprocess(ctx, item)
	default:
		return nil, nil
	}
}

// deriveState folds a Show/Season's state over its children; Movie/Episode
// are derived directly from their own attributes (§4.9).
func (p *Pipeline) deriveState(item *models.Item) models.State {
	if item.IsLeaf() {
		return statemachine.Derive(item)
	}

	children := p.Store.Children(item)
	if len(children) == 0 {
		return statemachine.Derive(item)
	}

	leafStates := make([]models.State, 0, len(children))
	for _, c := range children {
		leafStates = append(leafStates, p.deriveState(c))
	}
	folded := statemachine.DeriveParent(leafStates)

	// Every real leaf collapses Symlinked straight into Completed
	// (statemachine.symlinkedOrCompleted), so the fold never naturally
	// parks a parent at Symlinked. Without a checkpoint here, PostProcessing
	// would never run (§4.9: "Filesystem -> PostProcessing -> Completed").
	// Reporting Symlinked until ValidatedAt is stamped routes the parent
	// through one postprocessing pass before it is allowed to read as
	// Completed.
	if folded == models.StateCompleted && item.ValidatedAt == nil {
		return models.StateSymlinked
	}
	return folded
}

func (p *Pipeline) index(ctx context.Context, item *models.Item) ([]events.Reenqueue, error) {
	record, err := p.Metadata.Resolve(ctx, item.CanonicalID(), item.Type)
	if err != nil {
		return nil, err
	}

	item.Title = record.Title
	item.Year = record.Year
	if item.Title == "" {
		// §7 "metadata provider missing title": fall back to the canonical
		// id as the title so the item still advances through the pipeline.
		item.Title = item.CanonicalID()
	}

	var reenqueue []events.Reenqueue
	if item.Type == models.ItemShow {
		for seasonNum, epCount := range record.EpisodeCounts {
			season := p.ensureSeason(item, seasonNum)
			for epNum := 1; epNum <= epCount; epNum++ {
				p.ensureEpisode(season, item, epNum)
			}
			reenqueue = append(reenqueue, events.Reenqueue{ItemID: season.ID})
		}
	}

	if err := p.Store.Put(item); err != nil {
		return nil, err
	}
	if item.Type != models.ItemShow {
		reenqueue = append(reenqueue, events.Reenqueue{ItemID: item.ID})
	}
	return reenqueue, nil
}

func (p *Pipeline) ensureSeason(show *models.Item, seasonNum int) *models.Item {
	for _, c := range p.Store.Children(show) {
		if c.Type == models.ItemSeason && c.SeasonNumber == seasonNum {
			return c
		}
	}
	season := &models.Item{
		ID:           fmt.Sprintf("%s-s%d", show.ID, seasonNum),
		Type:         models.ItemSeason,
		ParentID:     show.ID,
		SeasonNumber: seasonNum,
		ImdbID:       show.ImdbID,
		TmdbID:       show.TmdbID,
		TvdbID:       show.TvdbID,
		Title:        show.Title,
		Year:         show.Year,
	}
	show.Children = append(show.Children, season.ID)
	_ = p.Store.Put(season)
	return season
}

func (p *Pipeline) ensureEpisode(season, show *models.Item, epNum int) *models.Item {
	for _, c := range p.Store.Children(season) {
		if c.Type == models.ItemEpisode && c.EpisodeNumber == epNum {
			return c
		}
	}
	ep := &models.Item{
		ID:            fmt.Sprintf("%s-e%d", season.ID, epNum),
		Type:          models.ItemEpisode,
		ParentID:      season.ID,
		SeasonNumber:  season.SeasonNumber,
		EpisodeNumber: epNum,
		ImdbID:        show.ImdbID,
		TmdbID:        show.TmdbID,
		TvdbID:        show.TvdbID,
		Title:         show.Title,
		Year:          show.Year,
	}
	season.Children = append(season.Children, ep.ID)
	_ = p.Store.Put(ep)
	return ep
}

func (p *Pipeline) scrapeItem(ctx context.Context, item *models.Item) ([]events.Reenqueue, error) {
	req := scrape.Request{
		Title:      item.Title,
		Year:       item.Year,
		IMDBID:     item.ImdbID,
		IsMovie:    item.Type == models.ItemMovie,
		SeasonNum:  item.SeasonNumber,
		EpisodeNum: item.EpisodeNumber,
	}

	scrapers := p.Scrapers
	if len(item.Aliases.W2PReleases) > 0 {
		scrapers = append(append([]scrape.Scraper{}, p.Scrapers...), &scrape.HarvestedScraper{Releases: item.Aliases.W2PReleases})
	}

	itemSeasons, itemEpisodes := contextNumbers(item)
	streams, err := scrape.FanIn(ctx, item, itemSeasons, itemEpisodes, scrapers, p.profilesFor(item), req)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(item.Streams))
	for _, s := range item.Streams {
		seen[s.InfoHash] = struct{}{}
	}
	for _, s := range streams {
		if _, ok := seen[s.InfoHash]; ok {
			continue
		}
		item.Streams = append(item.Streams, s)
		seen[s.InfoHash] = struct{}{}
	}

	if err := p.Store.Put(item); err != nil {
		return nil, err
	}
	return []events.Reenqueue{{ItemID: item.ID}}, nil
}

// profilesFor resolves the RankingProfile set for item via the longest-
// prefix lookup in PathProfiles against the item's would-be library
// directory (§1 RankingProfile: "derived from the item's target library
// path(s) via a longest-prefix lookup in path_profiles"). With no prefix
// match the lookup yields PathProfiles.DefaultProfile; only when the
// resolved name matches no configured profile does it fall back to every
// configured profile, so a deployment without PathProfiles set still ranks
// against something.
func (p *Pipeline) profilesFor(item *models.Item) []models.RankingProfile {
	name := p.PathProfiles.Resolve(vfs.LibraryDirFor(item))
	for _, profile := range p.Profiles {
		if profile.Name == name {
			return []models.RankingProfile{profile}
		}
	}
	return p.Profiles
}

func contextNumbers(item *models.Item) (seasons, episodes []int) {
	switch item.Type {
	case models.ItemSeason:
		return []int{item.SeasonNumber}, nil
	case models.ItemEpisode:
		return []int{item.SeasonNumber}, []int{item.EpisodeNumber}
	default:
		return nil, nil
	}
}

func (p *Pipeline) download(ctx context.Context, item *models.Item) ([]events.Reenqueue, error) {
	var lookup orchestrator.EpisodeLookup
	episodeCap := 0

	if item.Type != models.ItemMovie {
		show := p.resolveShow(item)
		lookup = storeEpisodeLookup{store: p.Store, show: show}
		if show != nil {
			if record, err := p.Metadata.Resolve(ctx, show.CanonicalID(), models.ItemShow); err == nil {
				episodeCap = orchestrator.EpisodeCap(record.EpisodeCounts, lastSeasonLastEpisode(record.EpisodeCounts))
			}
		}
	}

	result := orchestrator.Run(ctx, item, p.Providers, lookup, episodeCap, p.KeepVersions)
	if err := p.Store.Put(item); err != nil {
		return nil, err
	}

	switch {
	case result.Success:
		return []events.Reenqueue{{ItemID: item.ID}}, nil
	case result.AllCooldown:
		runAt := result.CooldownUntil
		if runAt.IsZero() {
			runAt = time.Now().Add(60 * time.Second)
		}
		return []events.Reenqueue{{ItemID: item.ID, RunAt: runAt}}, nil
	default:
		// SoftFailure: every desired Stream was tried and either failed or
		// is now blacklisted (§4.3). Nothing left to retry until a new
		// Stream is scraped, which re-enqueues this item on its own.
		return nil, nil
	}
}

func lastSeasonLastEpisode(counts map[int]int) int {
	lastSeason, lastCount := -1, 0
	for season, count := range counts {
		if season > lastSeason {
			lastSeason, lastCount = season, count
		}
	}
	return lastCount
}

func (p *Pipeline) resolveShow(item *models.Item) *models.Item {
	current := item
	for current.ParentID != "" {
		parent, ok := p.Store.Get(current.ParentID)
		if !ok {
			break
		}
		current = parent
	}
	return current
}

// storeEpisodeLookup implements orchestrator.EpisodeLookup by resolving a
// (season, episode) pair against every Season/Episode descending from show,
// so it works whether the dispatched item is the Show, a Season (packs), or
// an Episode created directly by the validator (single-episode releases).
type storeEpisodeLookup struct {
	store *store.ItemStore
	show  *models.Item
}

func (l storeEpisodeLookup) ResolveEpisode(seasonNumber, episodeNumber int) (*models.Item, bool) {
	if l.show == nil {
		return nil, false
	}
	for _, season := range l.store.Children(l.show) {
		if season.Type != models.ItemSeason || season.SeasonNumber != seasonNumber {
			continue
		}
		for _, ep := range l.store.Children(season) {
			if ep.Type == models.ItemEpisode && ep.EpisodeNumber == episodeNumber {
				return ep, true
			}
		}
	}
	return nil, false
}

func (p *Pipeline) materialize(item *models.Item) ([]events.Reenqueue, error) {
	leaves := p.leavesOf(item)
	var reenqueue []events.Reenqueue

	for _, leaf := range leaves {
		if len(leaf.FilesystemEntries) == 0 {
			continue
		}

		// §4.7: remove(leaf) then add(leaf) on every pass, so VFS/symlink
		// state is exact rather than an incremental patch. This must run
		// against the entries as currently registered, before Retention
		// drops any of them, or a dropped entry's stale symlink/VFS path
		// would never be torn down.
		if p.Symlinks != nil {
			if err := p.Symlinks.Remove(leaf); err != nil {
				return nil, err
			}
		}
		p.Host.Remove(leaf)

		keepVersions := p.keepVersionsForProfile(leaf)
		desired := orchestrator.DesiredInfohashes(leaf, keepVersions)
		orchestrator.EnforceRetention(leaf, keepVersions, desired)

		if !p.Host.Add(leaf) {
			continue
		}
		if p.Symlinks != nil {
			if err := p.Symlinks.Project(leaf, p.DownloadRoot); err != nil {
				return nil, err
			}
		}
		if err := p.Store.Put(leaf); err != nil {
			return nil, err
		}
		reenqueue = append(reenqueue, events.Reenqueue{ItemID: leaf.ID})
	}

	p.Host.Sync()
	return reenqueue, nil
}

func (p *Pipeline) leavesOf(item *models.Item) []*models.Item {
	if item.IsLeaf() {
		return []*models.Item{item}
	}
	var leaves []*models.Item
	for _, child := range p.Store.Children(item) {
		leaves = append(leaves, p.leavesOf(child)...)
	}
	return leaves
}

func (p *Pipeline) keepVersionsForProfile(leaf *models.Item) int {
	if len(leaf.FilesystemEntries) == 0 {
		return p.KeepVersions
	}
	name := leaf.FilesystemEntries[0].MediaMetadata.ProfileName
	for _, profile := range p.Profiles {
		if profile.Name == name {
			return profile.KeepVersionsPerItem
		}
	}
	return p.KeepVersions
}

func (p *Pipeline) postprocess(ctx context.Context, item *models.Item) ([]events.Reenqueue, error) {
	if item.Type != models.ItemSeason {
		now := time.Now()
		item.ValidatedAt = &now
		if err := p.Store.Put(item); err != nil {
			return nil, err
		}
		return []events.Reenqueue{{ItemID: item.ID}}, nil
	}

	show := p.resolveShow(item)
	existing := p.Store.Children(item)

	result, err := validator.Validate(
		ctx, show, item, existing,
		metadata.EpisodeCountAdapter{Provider: p.Metadata},
		p.Harvester, p.HarvesterEnabled, p.AllowIMDbIDAsTitle, time.Now(),
	)
	if err != nil {
		return nil, err
	}

	var reenqueue []events.Reenqueue
	for _, ep := range result.NewEpisodes {
		item.Children = append(item.Children, ep.ID)
		if err := p.Store.Put(ep); err != nil {
			return nil, err
		}
		reenqueue = append(reenqueue, events.Reenqueue{ItemID: ep.ID})
	}
	for _, ep := range result.UpdatedEpisodes {
		if err := p.Store.Put(ep); err != nil {
			return nil, err
		}
		reenqueue = append(reenqueue, events.Reenqueue{ItemID: ep.ID})
	}

	now := time.Now()
	item.ValidatedAt = &now
	if err := p.Store.Put(item); err != nil {
		return nil, err
	}
	reenqueue = append(reenqueue, events.Reenqueue{ItemID: item.ID})
	return reenqueue, nil
}
