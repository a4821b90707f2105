package vfs

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"novastream/models"
)

// SymlinkProjector materializes registered vfs_paths as symlinks into a
// secondary library tree (the §9 Design Notes "symlink materialization").
// It is a pure projection: it only reads MediaEntry/MediaItem data and never
// writes back to them, so it can run repeatedly without side effects on
// pipeline state.
type SymlinkProjector struct {
	fs          afero.Fs
	libraryRoot string
}

func NewSymlinkProjector(fs afero.Fs, libraryRoot string) *SymlinkProjector {
	return &SymlinkProjector{fs: fs, libraryRoot: libraryRoot}
}

// Project creates a symlink for every registered VFS path on leaf's
// FilesystemEntries, pointing at the entry's original filename under
// downloadRoot. Entries without a registered VFS path (not yet Symlinked)
// are skipped.
func (p *SymlinkProjector) Project(leaf *models.Item, downloadRoot string) error {
	if p.libraryRoot == "" {
		return nil
	}
	linker, ok := p.fs.(afero.Linker)
	if !ok {
		return nil
	}

	for _, entry := range leaf.FilesystemEntries {
		for _, vPath := range entry.VFSPaths {
			target := filepath.Join(p.libraryRoot, vPath)
			source := filepath.Join(downloadRoot, entry.OriginalFilename)

			if err := p.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if exists, _ := afero.Exists(p.fs, target); exists {
				continue
			}
			if err := linker.SymlinkIfPossible(source, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// Remove deletes the symlinks this leaf previously projected, without
// touching the leaf's MediaEntries.
func (p *SymlinkProjector) Remove(leaf *models.Item) error {
	if p.libraryRoot == "" {
		return nil
	}
	for _, entry := range leaf.FilesystemEntries {
		for _, vPath := range entry.VFSPaths {
			target := filepath.Join(p.libraryRoot, vPath)
			if err := p.fs.Remove(target); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}
