package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/voxnotes/pkg/core"
)

// DefaultAudioPattern matches every recording format the capture devices produce.
const DefaultAudioPattern = "**/*.{3gp,amr,wav,m4a,ogg}"

// Assets resolves recording paths against a recordings root.
// Relative paths are taken relative to Root.
type Assets struct {
	Root string
}

// NewAssets creates the asset collaborators for root.
func NewAssets(root string) *Assets {
	return &Assets{Root: root}
}

func (a *Assets) resolve(path string) string {
	if filepath.IsAbs(path) || a.Root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(a.Root, path)
}

// Exists implements core.AssetChecker.
func (a *Assets) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(a.resolve(path))
	return err == nil && info.Mode().IsRegular()
}

// Remove implements core.AssetRemover. A missing file is not an error.
func (a *Assets) Remove(path string) error {
	err := os.Remove(a.resolve(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove recording: %w", err)
	}
	return nil
}

// ReadAudio implements core.AudioSource.
func (a *Assets) ReadAudio(path string) ([]byte, error) {
	return os.ReadFile(a.resolve(path))
}

// Orphans lists recordings under Root that match pattern but are not
// referenced by any note. An empty pattern means DefaultAudioPattern.
func (a *Assets) Orphans(pattern string, referenced map[string]bool) ([]string, error) {
	if pattern == "" {
		pattern = DefaultAudioPattern
	}
	if _, err := os.Stat(a.Root); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	refs := make(map[string]bool, len(referenced))
	for p := range referenced {
		refs[a.resolve(p)] = true
	}

	matches, err := doublestar.Glob(os.DirFS(a.Root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to scan recordings: %w", err)
	}

	var orphans []string
	for _, m := range matches {
		full := filepath.Join(a.Root, filepath.FromSlash(m))
		if !refs[full] {
			orphans = append(orphans, full)
		}
	}
	slices.Sort(orphans)
	return orphans, nil
}

var (
	_ core.AssetChecker = (*Assets)(nil)
	_ core.AssetRemover = (*Assets)(nil)
	_ core.AudioSource  = (*Assets)(nil)
)
