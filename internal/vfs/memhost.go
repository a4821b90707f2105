package vfs

import (
	"sync"

	"novastream/models"
)

// MemHost is an in-memory reference Host: it records the registered path
// set per leaf item without mounting anything. Sufficient to unit-test the
// Orchestrator/Retention/Validator chain end-to-end.
type MemHost struct {
	mu    sync.RWMutex
	paths map[string][]string // leaf item ID -> registered paths
}

func NewMemHost() *MemHost {
	return &MemHost{paths: make(map[string][]string)}
}

// Add derives a path for every MediaEntry on leaf and registers it, writing
// the path back onto the entry's VFSPaths so §4.9's Derive() sees it.
func (h *MemHost) Add(leaf *models.Item) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	var registered []string
	for i := range leaf.FilesystemEntries {
		entry := &leaf.FilesystemEntries[i]
		if entry.OriginalFilename == "" || entry.InfoHash == "" {
			continue
		}
		path := PathFor(leaf, *entry)
		entry.VFSPaths = []string{path}
		registered = append(registered, path)
	}
	if len(registered) == 0 {
		return false
	}
	h.paths[leaf.ID] = registered
	return true
}

// Remove unregisters leaf's paths, clearing VFSPaths on every entry.
func (h *MemHost) Remove(leaf *models.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.paths, leaf.ID)
	for i := range leaf.FilesystemEntries {
		leaf.FilesystemEntries[i].VFSPaths = nil
	}
}

// Sync is a no-op for MemHost: there is no on-disk layout to refresh.
func (h *MemHost) Sync() {}

// PathsFor returns the currently registered paths for a leaf, for tests.
func (h *MemHost) PathsFor(leafID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.paths[leafID]...)
}

var _ Host = (*MemHost)(nil)
