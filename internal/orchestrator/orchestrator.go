package orchestrator

import (
	"context"
	"sort"
	"time"

	"novastream/internal/debrid"
	"novastream/models"
)

// RunResult is the outcome of one Orchestrator pass over an item's desired
// Streams (§4.3 Termination).
type RunResult struct {
	Success       bool
	AllCooldown   bool
	CooldownUntil time.Time
	SoftFailure   bool
	Attempts      int
	// ShouldYield flags that 3 or more streams were attempted, the
	// scheduling hint from the original's generator-based loop. Go has no
	// cheap mid-function coroutine yield, so Run processes every pending
	// Stream in one call and reports this as a hint rather than actually
	// suspending. Nothing in the pipeline or the Event Manager reads it.
	ShouldYield bool
}

type preValidatedEntry struct {
	container *models.TorrentContainer
	provider  *debrid.CircuitBreaker
	used      bool
}

// Run implements §4.3: materialize item's top-ranked desired Streams into
// MediaEntries via the given providers, in order, applying pre-validation
// re-ranking for the `hq` profile and the circuit-breaker cooldown rules.
func Run(ctx context.Context, item *models.Item, providers []*debrid.CircuitBreaker, lookup EpisodeLookup, episodeCap, keepVersions int) RunResult {
	desired := DesiredInfohashes(item, keepVersions)
	if len(desired) == 0 {
		return RunResult{SoftFailure: true}
	}

	present := materializedInfohashes(item, desired)
	if len(present) >= len(desired) {
		return RunResult{Success: true}
	}

	streams, preValidated := preValidate(ctx, item, streamsByDesired(item, desired), providers, present)

	attempts := 0
	hitAnyCooldown := false
	var earliestCooldown time.Time

	for _, stream := range streams {
		if len(present) >= len(desired) {
			break
		}
		if _, ok := present[stream.InfoHash]; ok {
			continue
		}

		attempts++
		success, hitCooldown, genuineExhaustion, cooldownEnd := attemptStream(ctx, item, stream, providers, lookup, episodeCap, preValidated)
		if success {
			present[stream.InfoHash] = struct{}{}
			continue
		}
		if hitCooldown {
			hitAnyCooldown = true
			if earliestCooldown.IsZero() || (!cooldownEnd.IsZero() && cooldownEnd.Before(earliestCooldown)) {
				earliestCooldown = cooldownEnd
			}
		}
		if genuineExhaustion {
			item.Blacklist(stream.InfoHash)
		}
	}

	cleanupUnused(ctx, preValidated)

	result := RunResult{Attempts: attempts, ShouldYield: attempts >= 3}
	switch {
	case len(present) >= len(desired):
		result.Success = true
	case hitAnyCooldown:
		result.AllCooldown = true
		result.CooldownUntil = earliestCooldown
	default:
		result.SoftFailure = true
	}
	return result
}

// DesiredInfohashes resolves the top-keepVersions non-blacklisted infohashes
// for item, in rank order, the set both Run and the Retention Enforcer use
// as the desired ordering (§4.6 ordering rule 1).
func DesiredInfohashes(item *models.Item, keepVersions int) []string {
	if keepVersions <= 0 {
		keepVersions = 1
	}
	var desired []string
	seen := make(map[string]struct{})
	for _, s := range item.Streams {
		if item.IsBlacklisted(s.InfoHash) {
			continue
		}
		if _, ok := seen[s.InfoHash]; ok {
			continue
		}
		seen[s.InfoHash] = struct{}{}
		desired = append(desired, s.InfoHash)
		if len(desired) >= keepVersions {
			break
		}
	}
	return desired
}

func materializedInfohashes(item *models.Item, desired []string) map[string]struct{} {
	wanted := make(map[string]struct{}, len(desired))
	for _, h := range desired {
		wanted[h] = struct{}{}
	}
	present := make(map[string]struct{})
	for _, e := range item.FilesystemEntries {
		if _, ok := wanted[e.InfoHash]; ok {
			present[e.InfoHash] = struct{}{}
		}
	}
	return present
}

func streamsByDesired(item *models.Item, desired []string) []models.Stream {
	order := make(map[string]int, len(desired))
	for i, h := range desired {
		order[h] = i
	}
	streams := make([]models.Stream, 0, len(desired))
	seen := make(map[string]struct{})
	for _, s := range item.Streams {
		if _, ok := order[s.InfoHash]; !ok {
			continue
		}
		if _, dup := seen[s.InfoHash]; dup {
			continue
		}
		seen[s.InfoHash] = struct{}{}
		streams = append(streams, s)
	}
	sort.SliceStable(streams, func(i, j int) bool {
		return order[streams[i].InfoHash] < order[streams[j].InfoHash]
	})
	return streams
}

// preValidate implements the "high-quality profile optimization": for the
// hq profile with >=2 pending desired Streams, probe up to 5 candidates
// across providers and re-sort them by season match, single-season-over-
// pack, then descending median file size, leaving the tail untouched.
func preValidate(ctx context.Context, item *models.Item, streams []models.Stream, providers []*debrid.CircuitBreaker, present map[string]struct{}) ([]models.Stream, map[string]*preValidatedEntry) {
	preValidated := make(map[string]*preValidatedEntry)

	var pending []models.Stream
	for _, s := range streams {
		if _, ok := present[s.InfoHash]; !ok {
			pending = append(pending, s)
		}
	}
	if len(pending) < 2 || pending[0].ProfileName != "hq" {
		return streams, preValidated
	}

	candidateCount := len(pending)
	if candidateCount > 5 {
		candidateCount = 5
	}
	candidates := pending[:candidateCount]

	type probed struct {
		stream    models.Stream
		container *models.TorrentContainer
	}
	var results []probed
	for _, s := range candidates {
		for _, p := range providers {
			if p.Open() {
				continue
			}
			container, err := p.InstantAvailability(ctx, s.InfoHash, item.Type)
			if err != nil || container == nil {
				continue
			}
			container.PreValidated = true
			preValidated[s.InfoHash] = &preValidatedEntry{container: container, provider: p}
			results = append(results, probed{stream: s, container: container})
			break
		}
	}
	if len(results) == 0 {
		return streams, preValidated
	}

	sort.SliceStable(results, func(i, j int) bool {
		iSeason, jSeason := seasonMatches(item, results[i].stream), seasonMatches(item, results[j].stream)
		if iSeason != jSeason {
			return iSeason
		}
		iSingle, jSingle := isSingleSeason(results[i].stream), isSingleSeason(results[j].stream)
		if iSingle != jSingle {
			return iSingle
		}
		return results[i].container.MedianFileSize() > results[j].container.MedianFileSize()
	})

	reordered := make([]models.Stream, 0, len(streams))
	matched := make(map[string]struct{}, len(results))
	for _, r := range results {
		reordered = append(reordered, r.stream)
		matched[r.stream.InfoHash] = struct{}{}
	}
	for _, s := range streams {
		if _, ok := matched[s.InfoHash]; ok {
			continue
		}
		reordered = append(reordered, s)
	}
	return reordered, preValidated
}

func seasonMatches(item *models.Item, s models.Stream) bool {
	if item.Type != models.ItemSeason {
		return false
	}
	for _, season := range s.ParsedData.Seasons {
		if season == item.SeasonNumber {
			return true
		}
	}
	return false
}

func isSingleSeason(s models.Stream) bool {
	return len(s.ParsedData.Seasons) == 1
}

// attemptStream implements the per-stream, per-provider attempt loop.
// genuineExhaustion reports §4.3 step 3: the Stream was tried on every
// non-cooldown provider and failed with a real error on at least one of
// them, rather than only hitting circuit-breaker cooldowns.
func attemptStream(
	ctx context.Context,
	item *models.Item,
	stream models.Stream,
	providers []*debrid.CircuitBreaker,
	lookup EpisodeLookup,
	episodeCap int,
	preValidated map[string]*preValidatedEntry,
) (success, hitCooldown, genuineExhaustion bool, cooldownEnd time.Time) {
	anyNonCooldown := false
	anyGenuineFailure := false

	for _, p := range providers {
		if p.Open() {
			if cooldownEnd.IsZero() || p.CooldownUntil().Before(cooldownEnd) {
				cooldownEnd = p.CooldownUntil()
			}
			continue
		}
		anyNonCooldown = true

		container, err := resolveContainer(ctx, p, stream, item.Type, preValidated)
		if err == debrid.ErrCircuitBreakerOpen {
			hitCooldown = true
			if cooldownEnd.IsZero() || p.CooldownUntil().Before(cooldownEnd) {
				cooldownEnd = p.CooldownUntil()
			}
			continue
		}
		if err != nil || container == nil {
			anyGenuineFailure = true
			continue
		}

		container.Files = validFiles(container.Files)
		if err := finalizeDownload(ctx, p, container); err != nil {
			anyGenuineFailure = true
			continue
		}

		match := MatchContainerToItem(item, container, stream, lookup, episodeCap)
		if len(match.MatchedLeaves) == 0 {
			_ = p.DeleteTorrent(ctx, container.TorrentID)
			anyGenuineFailure = true
			continue
		}

		attachMatched(match, p.Name())
		if pv, ok := preValidated[stream.InfoHash]; ok {
			pv.used = true
		}
		success = true
		return
	}

	if !anyNonCooldown {
		hitCooldown = true
		return
	}
	genuineExhaustion = anyGenuineFailure
	return
}

func resolveContainer(ctx context.Context, p *debrid.CircuitBreaker, stream models.Stream, itemType models.ItemType, preValidated map[string]*preValidatedEntry) (*models.TorrentContainer, error) {
	if pv, ok := preValidated[stream.InfoHash]; ok && !pv.used && pv.provider == p {
		return pv.container, nil
	}
	return p.InstantAvailability(ctx, stream.InfoHash, itemType)
}

func validFiles(files []models.TorrentFile) []models.TorrentFile {
	out := files[:0]
	for _, f := range files {
		if f.Filename == "" || f.Size <= 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

func finalizeDownload(ctx context.Context, p *debrid.CircuitBreaker, container *models.TorrentContainer) error {
	if container.TorrentID == "" {
		id, err := p.AddTorrent(ctx, container.InfoHash)
		if err != nil {
			return err
		}
		info, err := p.GetTorrentInfo(ctx, id)
		if err != nil {
			return err
		}
		*container = *info
		container.TorrentID = id
	}

	fileIDs := make([]string, 0, len(container.Files))
	for _, f := range container.Files {
		fileIDs = append(fileIDs, f.FileID)
	}
	return p.SelectFiles(ctx, container.TorrentID, fileIDs)
}

func attachMatched(match MatchResult, providerName string) {
	leaves := make(map[string]*models.Item, len(match.MatchedLeaves))
	for _, leaf := range match.MatchedLeaves {
		leaves[leaf.ID] = leaf
	}
	for leafID, entries := range match.NewEntries {
		leaf, ok := leaves[leafID]
		if !ok {
			continue
		}
		for _, entry := range entries {
			entry.Provider = providerName
			AttachEntry(leaf, entry)
		}
	}
}

func cleanupUnused(ctx context.Context, preValidated map[string]*preValidatedEntry) {
	for _, pv := range preValidated {
		if pv.used {
			continue
		}
		_ = pv.provider.DeleteTorrent(ctx, pv.container.TorrentID)
	}
}
