// Package statemachine computes an Item's derived state (§4.9): state is
// never stored as a column, it is recomputed from attributes on every
// access, which eliminates "stuck" states after partial writes (§9).
package statemachine

import "novastream/models"

// Derive computes the state of a single leaf item (Movie or Episode) from
// its own attributes.
func Derive(item *models.Item) models.State {
	if item.Paused {
		return models.StatePaused
	}
	if item.FailureReason != "" {
		return models.StateFailed
	}

	for _, entry := range item.FilesystemEntries {
		if len(entry.VFSPaths) > 0 {
			return symlinkedOrCompleted(item)
		}
	}
	if len(item.FilesystemEntries) > 0 {
		return models.StateDownloaded
	}

	hasNonBlacklisted := false
	for _, s := range item.Streams {
		if !item.IsBlacklisted(s.InfoHash) {
			hasNonBlacklisted = true
			break
		}
	}
	if hasNonBlacklisted {
		return models.StateScraped
	}

	if item.CanonicalID() != "" && item.Title != "" {
		return models.StateIndexed
	}

	if item.CanonicalID() != "" {
		return models.StateRequested
	}

	return models.StateUnknown
}

// symlinkedOrCompleted maps an item with at least one VFS-registered entry to
// Completed when it is a leaf (Movie or Episode) with no children to fold
// over, and to Symlinked otherwise; a parent's Completed is computed by
// DeriveParent.
func symlinkedOrCompleted(item *models.Item) models.State {
	if item.IsLeaf() && len(item.Children) == 0 {
		return models.StateCompleted
	}
	return models.StateSymlinked
}

// DeriveParent folds a Show/Season's state over its leaves' derived states:
// Completed only when every required leaf is Symlinked/Completed; Failed if
// any leaf failed and none succeeded; otherwise the "least advanced" state
// among the leaves, since a parent is only as done as its slowest child.
func DeriveParent(leafStates []models.State) models.State {
	if len(leafStates) == 0 {
		return models.StateUnknown
	}

	order := map[models.State]int{
		models.StateUnknown:    0,
		models.StateRequested:  1,
		models.StateIndexed:    2,
		models.StateScraped:    3,
		models.StateDownloaded: 4,
		models.StateSymlinked:  5,
		models.StateCompleted:  6,
	}

	allDone := true
	worst := models.StateCompleted
	anyFailed := false
	nonFailed := 0

	for _, s := range leafStates {
		if s == models.StateFailed {
			anyFailed = true
			continue
		}
		nonFailed++
		if s != models.StateCompleted && s != models.StateSymlinked {
			allDone = false
		}
		if order[s] < order[worst] {
			worst = s
		}
	}

	if nonFailed == 0 {
		return models.StateFailed
	}
	if allDone {
		return models.StateCompleted
	}
	if anyFailed && worst == models.StateCompleted {
		return models.StateFailed
	}
	return worst
}

// NextService returns the service that should process an item currently in
// the given state (§4.9 Routing).
func NextService(state models.State) string {
	switch state {
	case models.StateRequested:
		return "indexer"
	case models.StateIndexed:
		return "scraper"
	case models.StateScraped:
		return "downloader"
	case models.StateDownloaded:
		return "filesystem"
	case models.StateSymlinked:
		return "postprocessing"
	default:
		return ""
	}
}
