package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/voxnotes/pkg/adapters/fs"
	"github.com/aretw0/voxnotes/pkg/adapters/sqlite"
)

// ErrRootNotFound is returned by FindRoot when no data directory encloses the start.
var ErrRootNotFound = errors.New("data directory not found")

// FindRoot looks upwards from startDir for a data directory, marked by a
// .voxnotes directory or a notes document.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if hasFile(dir, fs.DefaultSystemDir) || hasFile(dir, fs.DefaultNotesFile) || hasFile(dir, sqlite.DefaultFile) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
