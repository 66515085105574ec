package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrefs(t *testing.T, env map[string]string) *PrefsStore {
	t.Helper()
	p := NewPrefsStore(filepath.Join(t.TempDir(), DefaultPrefsFile), nil)
	p.getenv = func(key string) string { return env[key] }
	return p
}

func TestPrefs_CategoriesRoundTrip(t *testing.T) {
	p := newTestPrefs(t, nil)
	ctx := context.Background()

	names, err := p.LoadCategories(ctx)
	require.NoError(t, err)
	assert.Nil(t, names)

	require.NoError(t, p.SaveCategories(ctx, []string{"Work", "Home"}))
	names, err = p.LoadCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Work", "Home"}, names)

	data, err := os.ReadFile(p.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "categories:")
}

func TestPrefs_SettingsDefaults(t *testing.T) {
	p := newTestPrefs(t, nil)

	s, err := p.TranscriptionSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguage, s.LanguageCode)
	assert.Nil(t, s.Credentials)
}

func TestPrefs_SettingsCredentialSources(t *testing.T) {
	dir := t.TempDir()
	fromFile := filepath.Join(dir, "file.json")
	fromEnv := filepath.Join(dir, "env.json")
	require.NoError(t, os.WriteFile(fromFile, []byte(`{"from":"file"}`), 0600))
	require.NoError(t, os.WriteFile(fromEnv, []byte(`{"from":"env"}`), 0600))
	ctx := context.Background()

	p := newTestPrefs(t, nil)
	require.NoError(t, p.Update(func(pr *Prefs) error {
		pr.Credentials = `{"from":"inline"}`
		return nil
	}))
	s, err := p.TranscriptionSettings(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"inline"}`, string(s.Credentials))

	require.NoError(t, p.SetCredentialsFile(fromFile))
	require.NoError(t, p.SetLanguage("en-US"))
	s, err = p.TranscriptionSettings(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"file"}`, string(s.Credentials))
	assert.Equal(t, "en-US", s.LanguageCode)

	p.getenv = func(key string) string {
		if key == CredentialsEnv {
			return fromEnv
		}
		return ""
	}
	s, err = p.TranscriptionSettings(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"env"}`, string(s.Credentials))
}

func TestPrefs_Setters(t *testing.T) {
	p := newTestPrefs(t, nil)

	assert.Error(t, p.SetLanguage("  "))
	assert.Error(t, p.SetCredentialsFile(filepath.Join(t.TempDir(), "missing.json")))
	require.NoError(t, p.SetCredentialsFile(""))
}

func TestPrefs_MalformedFile(t *testing.T) {
	p := newTestPrefs(t, nil)
	require.NoError(t, os.WriteFile(p.Path(), []byte("categories: [unclosed"), 0644))

	_, err := p.LoadCategories(context.Background())
	assert.Error(t, err)
}

func TestPrefs_WatchReportsChanges(t *testing.T) {
	p := newTestPrefs(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	stop, err := p.Watch(ctx, func(context.Context) { calls.Add(1) })
	require.NoError(t, err)
	defer func() {
		stopCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = stop(stopCtx)
	}()

	require.Eventually(t, func() bool {
		return p.State().(PrefsState).WatcherActive
	}, 2*time.Second, 10*time.Millisecond)

	// A burst of writes is reported once the file settles.
	for _, lang := range []string{"en-US", "fr-FR", "it-IT"} {
		require.NoError(t, p.SetLanguage(lang))
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	// Unrelated files in the directory are ignored.
	time.Sleep(3 * PrefsDebounce)
	before := calls.Load()
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(p.Path()), "notes.json"), []byte("[]"), 0644))
	time.Sleep(3 * PrefsDebounce)
	assert.Equal(t, before, calls.Load())
}

func TestDebouncer_Coalesces(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	for range 5 {
		d.trigger(func() { calls.Add(1) })
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	d.trigger(func() { calls.Add(1) })
	d.stopAndWait(time.Second)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
