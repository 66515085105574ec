package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/voxnotes"
	"github.com/aretw0/voxnotes/pkg/adapters/fs"
	"github.com/aretw0/voxnotes/pkg/core"
)

// runCLI executes the root command in-process. Flag variables are globals,
// so tests that set a flag reset it themselves.
func runCLI(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
}

func readNotes(t *testing.T, dir string) []core.Note {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, fs.DefaultNotesFile))
	require.NoError(t, err)
	notes, err := fs.UnmarshalNotes(data)
	require.NoError(t, err)
	return notes
}

func TestCLI_NoteLifecycle(t *testing.T) {
	dir := t.TempDir()

	runCLI(t, "--dir", dir, "add", "ToDos", "buy", "milk")
	notes := readNotes(t, dir)
	require.Len(t, notes, 1)
	assert.Equal(t, "buy milk", notes[0].Text)
	assert.Equal(t, "ToDos", notes[0].Category)
	id := notes[0].ID

	runCLI(t, "--dir", dir, "done", id)
	assert.True(t, readNotes(t, dir)[0].Done)

	runCLI(t, "--dir", dir, "done", "--undo", id)
	doneUndo = false
	assert.False(t, readNotes(t, dir)[0].Done)

	runCLI(t, "--dir", dir, "delete", id)
	assert.Empty(t, readNotes(t, dir))
}

func TestCLI_Categories(t *testing.T) {
	dir := t.TempDir()
	prefs := fs.NewPrefsStore(filepath.Join(dir, fs.DefaultPrefsFile), nil)
	ctx := context.Background()

	runCLI(t, "--dir", dir, "categories", "add", "Garden")
	runCLI(t, "--dir", dir, "categories", "move", "4", "1")
	names, err := prefs.LoadCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Garden", "ToDos", "Reminders", "Town Meeting"}, names)

	runCLI(t, "--dir", dir, "categories", "remove", "Reminders")
	names, err = prefs.LoadCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Garden", "ToDos", "Town Meeting"}, names)
}

func TestCLI_RecordExistingFile(t *testing.T) {
	dir := t.TempDir()
	recording := filepath.Join(dir, "recordings", "ToDos_20240101_100000.3gp")
	require.NoError(t, os.MkdirAll(filepath.Dir(recording), 0755))
	require.NoError(t, os.WriteFile(recording, []byte("#!AMR\n"), 0644))

	runCLI(t, "--dir", dir, "record", "ToDos", "--file", recording, "--no-transcribe")
	recordFile, recordNoTranscribe = "", false

	notes := readNotes(t, dir)
	require.Len(t, notes, 1)
	assert.Equal(t, core.KindAudio, notes[0].Kind)
	assert.Equal(t, recording, notes[0].AudioPath)
	assert.True(t, notes[0].NeedsTranscription())
}

func TestCLI_Settings(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join(dir, "key.json")
	require.NoError(t, os.WriteFile(key, []byte(`{}`), 0600))

	runCLI(t, "--dir", dir, "settings", "language", "en-US")
	runCLI(t, "--dir", dir, "settings", "credentials", key)

	p, err := fs.NewPrefsStore(filepath.Join(dir, fs.DefaultPrefsFile), nil).Read()
	require.NoError(t, err)
	assert.Equal(t, "en-US", p.TranscriptionLanguage)
	assert.Equal(t, key, p.CredentialsFile)
}

func TestHintFor(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"wrapped unknown category": {fmt.Errorf("add: %w", core.ErrUnknownCategory), "categories list"},
		"missing note":             {core.ErrNotFound, "list --all"},
		"auth":                     {&core.AuthError{Err: errors.New("no key")}, "settings credentials"},
		"other":                    {errors.New("boom"), ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			hint := hintFor(tc.err)
			if tc.want == "" {
				assert.Empty(t, hint)
				return
			}
			assert.Contains(t, hint, tc.want)
		})
	}
}

func TestCLI_Version(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)
	defer func() { versionShort = false }()

	runCLI(t, "version", "--short")
	assert.Equal(t, strings.TrimSpace(voxnotes.Version)+"\n", out.String())
}
