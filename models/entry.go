package models

// MediaMetadata travels with a MediaEntry: the parsed fields plus the
// profile it was materialized for.
type MediaMetadata struct {
	ParsedData  ParsedData
	ProfileName string
}

// MediaEntry is a concrete file available via a debrid provider, bound to a
// leaf item and a ranking profile. Path generation is delegated to the VFS
// host at registration time; the entry itself is the source of truth for
// file identity.
type MediaEntry struct {
	OriginalFilename   string
	DownloadURL        string
	Provider           string
	ProviderDownloadID string
	FileSize           int64
	InfoHash           string
	MediaMetadata      MediaMetadata
	LibraryProfiles    []string
	VFSPaths           []string
}

// Key identifies an entry for dedup purposes: (infohash, profile_name),
// treating empty profile_name as a single equivalence class.
func (e MediaEntry) Key() string {
	return e.InfoHash + "|" + e.MediaMetadata.ProfileName
}

// TorrentFile is one file inside a TorrentContainer.
type TorrentFile struct {
	FileID   string
	Filename string
	Size     int64
}

// TorrentContainer is produced by a debrid provider during instant-
// availability validation; it may be pre-validated (probe added to the
// provider but not yet selected for download).
type TorrentContainer struct {
	InfoHash  string
	TorrentID string
	TotalSize int64
	Files     []TorrentFile

	// PreValidated marks a container obtained purely to inspect file
	// layout/size ahead of committing to a download.
	PreValidated bool
}

// MedianFileSize returns the median per-file size, falling back to the
// total size when per-file sizes are unavailable.
func (c TorrentContainer) MedianFileSize() int64 {
	if len(c.Files) == 0 {
		return c.TotalSize
	}
	sizes := make([]int64, len(c.Files))
	for i, f := range c.Files {
		sizes[i] = f.Size
	}
	// simple insertion sort; container file counts are small (<< 100)
	for i := 1; i < len(sizes); i++ {
		v := sizes[i]
		j := i - 1
		for j >= 0 && sizes[j] > v {
			sizes[j+1] = sizes[j]
			j--
		}
		sizes[j+1] = v
	}
	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		return sizes[mid]
	}
	return (sizes[mid-1] + sizes[mid]) / 2
}
