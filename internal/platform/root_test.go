package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	// /tmp/
	//   data/ (.voxnotes)
	//     subdir/
	//       nested/
	//   legacy/ (notes.json)
	//   empty/
	baseDir := t.TempDir()
	dataDir := filepath.Join(baseDir, "data")
	subDir := filepath.Join(dataDir, "subdir")
	nestedDir := filepath.Join(subDir, "nested")
	legacyDir := filepath.Join(baseDir, "legacy")
	emptyDir := filepath.Join(baseDir, "empty")

	require.NoError(t, os.MkdirAll(nestedDir, 0755))
	require.NoError(t, os.MkdirAll(legacyDir, 0755))
	require.NoError(t, os.MkdirAll(emptyDir, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(dataDir, ".voxnotes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(legacyDir, "notes.json"), []byte("[]"), 0644))

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
		wantErr   bool
	}{
		{name: "Start at Root", startPath: dataDir, wantRoot: dataDir},
		{name: "Start in Subdir", startPath: subDir, wantRoot: dataDir},
		{name: "Start Nested Deeply", startPath: nestedDir, wantRoot: dataDir},
		{name: "Notes Document Only", startPath: legacyDir, wantRoot: legacyDir},
		{name: "No Root Found", startPath: emptyDir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRootNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.wantRoot), filepath.Clean(got))
		})
	}
}
