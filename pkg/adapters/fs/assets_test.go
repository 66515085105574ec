package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/voxnotes/pkg/adapters/fs"
)

func TestAssets_ExistsRemoveRead(t *testing.T) {
	root := t.TempDir()
	assets := fs.NewAssets(root)
	path := filepath.Join(root, "a.3gp")
	touch(t, path)

	assert.True(t, assets.Exists(path))
	assert.True(t, assets.Exists("a.3gp"), "relative paths resolve against the root")
	assert.False(t, assets.Exists(root), "directories are not recordings")
	assert.False(t, assets.Exists(""))

	data, err := assets.ReadAudio(path)
	require.NoError(t, err)
	assert.Equal(t, "#!AMR\n", string(data))

	require.NoError(t, assets.Remove(path))
	assert.False(t, assets.Exists(path))
	assert.NoError(t, assets.Remove(path), "removing twice is fine")

	_, err = assets.ReadAudio(path)
	assert.Error(t, err)
}

func TestAssets_Orphans(t *testing.T) {
	root := t.TempDir()
	assets := fs.NewAssets(root)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024"), 0755))

	used := filepath.Join(root, "ToDos_20240101_100000.3gp")
	orphan := filepath.Join(root, "2024", "Reminders_20240102_090000.amr")
	touch(t, used)
	touch(t, orphan)
	touch(t, filepath.Join(root, "readme.txt"))

	orphans, err := assets.Orphans("", map[string]bool{used: true})
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, orphans)

	orphans, err = assets.Orphans("*.3gp", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{used}, orphans)

	missing := fs.NewAssets(filepath.Join(root, "none"))
	orphans, err = missing.Orphans("", nil)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}
