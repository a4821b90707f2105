// Package vfs implements the §4.7 VFS Registration contract: add/remove/
// sync a leaf item's MediaEntries into a virtual path layout. It is a
// registration contract, not a real FUSE filesystem (FUSE hosting is out of
// scope); path conventions follow avogabo-EDRmount's LibraryFS layout
// (Type/LetterBucket/Title (Year)/..., without LibraryFS's id segment).
package vfs

import (
	"strconv"

	"novastream/models"
)

// Host is the contract the Orchestrator/Retention chain drives (§4.7). On
// every processing pass for a leaf, callers must remove(leaf) then add(leaf)
// so VFS state is exact rather than incremental.
type Host interface {
	Add(leaf *models.Item) bool
	Remove(leaf *models.Item)
	Sync()
}

// PathFor derives the virtual path for one MediaEntry as
// "Type/LetterBucket/Title (Year)/filename", with a "Season N" directory
// before the filename for episodes (grounded on LibraryFS's layout).
func PathFor(leaf *models.Item, entry models.MediaEntry) string {
	title := leaf.Title
	if title == "" {
		title = leaf.ID
	}
	bucket := letterBucket(title)
	typeDir := typeDirFor(leaf.Type)

	dir := typeDir + "/" + bucket + "/" + titleWithYear(title, leaf.Year)
	if leaf.Type == models.ItemEpisode {
		dir += "/" + seasonDir(leaf.SeasonNumber)
	}
	return dir + "/" + entry.OriginalFilename
}

// LibraryDirFor derives the directory an item's entries resolve under,
// without a specific entry's filename. Used ahead of materialization (at
// scrape time) to resolve which RankingProfiles apply via
// models.PathProfiles' longest-prefix lookup (§1 RankingProfile: "derived
// from the item's target library path(s)").
func LibraryDirFor(item *models.Item) string {
	title := item.Title
	if title == "" {
		title = item.ID
	}
	dir := typeDirFor(item.Type) + "/" + letterBucket(title) + "/" + titleWithYear(title, item.Year)
	if item.Type == models.ItemEpisode {
		dir += "/" + seasonDir(item.SeasonNumber)
	}
	return dir
}

func typeDirFor(t models.ItemType) string {
	switch t {
	case models.ItemMovie:
		return "Movies"
	default:
		return "Series"
	}
}

func letterBucket(title string) string {
	for _, r := range title {
		if r >= 'a' && r <= 'z' {
			r -= 32
		}
		if r >= 'A' && r <= 'Z' {
			return string(r)
		}
	}
	return "#"
}

func titleWithYear(title string, year int) string {
	if year == 0 {
		return title
	}
	return title + " (" + strconv.Itoa(year) + ")"
}

func seasonDir(season int) string {
	return "Season " + strconv.Itoa(season)
}
