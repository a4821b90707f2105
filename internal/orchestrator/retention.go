package orchestrator

import (
	"sort"

	"novastream/models"
)

// EnforceRetention implements §4.6 as a single unified algorithm. The
// original source had two code paths (desired_hashes present vs absent)
// that could diverge on edge cases (§9 Design Notes); here, desired is
// always passed (nil/empty is simply the empty desired set, not a branch),
// collapsing both cases into one ordering rule.
//
// Per profile group: keep at most keepVersions entries, ordered by (1)
// infohashes in desired, in desired order, then (2) remaining entries in
// quality-ranked order (the item's Stream list, descending rank). Preserve
// active_stream to point at the top retained entry's infohash when
// possible. Idempotent: calling twice with the same input is a no-op the
// second time.
func EnforceRetention(item *models.Item, keepVersions int, desired []string) {
	if keepVersions <= 0 {
		keepVersions = 1
	}

	rankOf := make(map[string]int)
	for _, s := range item.Streams {
		if _, exists := rankOf[s.InfoHash]; !exists {
			rankOf[s.InfoHash] = s.Rank
		}
	}

	desiredOrder := make(map[string]int, len(desired))
	for i, hash := range desired {
		if _, exists := desiredOrder[hash]; !exists {
			desiredOrder[hash] = i
		}
	}

	groups := make(map[string][]models.MediaEntry)
	var profileOrder []string
	for _, entry := range item.FilesystemEntries {
		key := entry.MediaMetadata.ProfileName
		if _, ok := groups[key]; !ok {
			profileOrder = append(profileOrder, key)
		}
		groups[key] = append(groups[key], entry)
	}

	var kept []models.MediaEntry
	for _, profile := range profileOrder {
		entries := groups[profile]

		sort.SliceStable(entries, func(i, j int) bool {
			iDesired, iOK := desiredOrder[entries[i].InfoHash]
			jDesired, jOK := desiredOrder[entries[j].InfoHash]
			if iOK && jOK {
				return iDesired < jDesired
			}
			if iOK != jOK {
				return iOK // desired entries sort before non-desired ones
			}
			return rankOf[entries[i].InfoHash] > rankOf[entries[j].InfoHash]
		})

		if len(entries) > keepVersions {
			entries = entries[:keepVersions]
		}
		kept = append(kept, entries...)
	}

	item.FilesystemEntries = kept

	if item.ActiveStream != nil {
		stillPresent := false
		for _, e := range kept {
			if e.InfoHash == item.ActiveStream.InfoHash {
				stillPresent = true
				break
			}
		}
		if !stillPresent {
			if len(kept) > 0 {
				item.ActiveStream = &models.ActiveStream{InfoHash: kept[0].InfoHash}
			} else {
				item.ActiveStream = nil
			}
		}
	}
}
