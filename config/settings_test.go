package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerLoadCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "settings.json"))

	s, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, s.KeepVersions)
	assert.Equal(t, "default", s.PathProfiles.DefaultProfile)
	assert.Contains(t, s.RankingProfiles, "default")
}

func TestManagerSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(filepath.Join(dir, "settings.json"))

	s, err := m.Load()
	require.NoError(t, err)

	s.KeepVersions = 2
	s.PathProfiles.Paths["/library/anime"] = "anime"
	require.NoError(t, m.Save(s))

	reloaded, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.KeepVersions)
	assert.Equal(t, "anime", reloaded.PathProfiles.Paths["/library/anime"])
}
