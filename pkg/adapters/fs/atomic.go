package fs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TempFilePrefix names the temporary files of an in-progress replace.
const TempFilePrefix = ".voxnotes-tmp-"

// replaceFile swaps the content of path for data through a synced temp file
// in the same directory, so readers see either the old or the new document.
// Parent directories are created. Identical content is left untouched and
// reported as unchanged, which keeps file watchers and history quiet.
func replaceFile(path string, data []byte, perm os.FileMode) (changed bool, err error) {
	current, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(current, data):
		return false, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}

	if err = os.Chmod(tmpName, perm); err != nil {
		return false, fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return false, fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return true, nil
}
