package platform_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/voxnotes/internal/platform"
	"github.com/aretw0/voxnotes/pkg/adapters/fs"
	"github.com/aretw0/voxnotes/pkg/adapters/metrics"
	"github.com/aretw0/voxnotes/pkg/core"
)

type echoTranscriber struct {
	mu        sync.Mutex
	languages []string
}

func (e *echoTranscriber) Transcribe(_ context.Context, audio []byte, lang string, _ []byte) (string, error) {
	e.mu.Lock()
	e.languages = append(e.languages, lang)
	e.mu.Unlock()
	return "heard " + string(audio), nil
}

func openApp(t *testing.T, dir string, opts ...platform.Option) *platform.App {
	t.Helper()
	base := []platform.Option{platform.WithTranscriber(&echoTranscriber{}), platform.WithPacing(-1)}
	app, err := platform.Open(context.Background(), dir, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = app.Close(ctx)
	})
	return app
}

func closeApp(t *testing.T, app *platform.App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, app.Close(ctx))
}

func writeRecording(t *testing.T, app *platform.App, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(app.Assets.Root, 0755))
	path := filepath.Join(app.Assets.Root, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestOpen_Adapters(t *testing.T) {
	for _, adapter := range []string{platform.AdapterFS, platform.AdapterSQLite} {
		t.Run(adapter, func(t *testing.T) {
			dir := t.TempDir()
			ctx := context.Background()

			app := openApp(t, dir, platform.WithAdapter(adapter))
			assert.Equal(t, dir, app.Root)

			_, err := app.Service.CreateTextNote(ctx, "ToDos", "buy milk")
			require.NoError(t, err)

			path := writeRecording(t, app, "ToDos_20240101_100000.3gp", "hello")
			audio, batch, err := app.Service.CreateAudioNote(ctx, "ToDos", path)
			require.NoError(t, err)
			require.NotNil(t, batch)

			waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			result, err := batch.Wait(waitCtx)
			require.NoError(t, err)
			assert.Equal(t, []string{audio.ID}, result.Updated)
			closeApp(t, app)

			reopened := openApp(t, dir, platform.WithAdapter(adapter), platform.WithMustExist(true))
			active, err := reopened.Service.ActiveNotes(ctx)
			require.NoError(t, err)
			require.Len(t, active, 2)
			assert.Equal(t, audio.ID, active[0].ID, "newest first")
			assert.Equal(t, "heard hello", active[0].Text)
			assert.Equal(t, "buy milk", active[1].Text)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := platform.Open(ctx, t.TempDir(), platform.WithAdapter("s3"))
	assert.ErrorContains(t, err, "unknown adapter")

	_, err = platform.Open(ctx, filepath.Join(t.TempDir(), "missing"), platform.WithMustExist(true))
	assert.Error(t, err)

	_, err = platform.Open(ctx, t.TempDir(), platform.WithAdapter(platform.AdapterSQLite), platform.WithHistory(true))
	assert.ErrorContains(t, err, "history")
}

func TestOpen_ManualTranscription(t *testing.T) {
	app := openApp(t, t.TempDir(), platform.WithManualTranscription(true))
	ctx := context.Background()

	path := writeRecording(t, app, "a.3gp", "x")
	n, batch, err := app.Service.CreateAudioNote(ctx, "ToDos", path)
	require.NoError(t, err)
	assert.Nil(t, batch)

	batch, err = app.Service.Transcribe(ctx, n.ID)
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err = batch.Wait(waitCtx)
	require.NoError(t, err)

	got, err := app.Service.Note(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "heard x", got.Text)
}

func TestOpen_PrefsWatchReloadsCategories(t *testing.T) {
	app := openApp(t, t.TempDir(), platform.WithPrefsWatch(true))
	ctx := context.Background()

	require.Eventually(t, func() bool {
		return app.Prefs.State().(fs.PrefsState).WatcherActive
	}, 2*time.Second, 10*time.Millisecond)

	// Another process edits prefs.yaml.
	require.NoError(t, os.WriteFile(app.Prefs.Path(), []byte("categories:\n  - Garden\n  - ToDos\n"), 0644))

	require.Eventually(t, func() bool {
		names, err := app.Service.Categories(ctx)
		return err == nil && len(names) == 2 && names[0] == "Garden"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestApp_OrphansAndStatus(t *testing.T) {
	app := openApp(t, t.TempDir(), platform.WithManualTranscription(true))
	ctx := context.Background()

	used := writeRecording(t, app, "ToDos_1.3gp", "a")
	orphan := writeRecording(t, app, "ToDos_2.3gp", "b")
	_, _, err := app.Service.CreateAudioNote(ctx, "ToDos", used)
	require.NoError(t, err)

	orphans, err := app.Orphans(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{orphan}, orphans)
	assert.FileExists(t, orphan)

	orphans, err = app.Orphans(ctx, true)
	require.NoError(t, err)
	assert.Len(t, orphans, 1)
	assert.NoFileExists(t, orphan)
	assert.FileExists(t, used)

	status := app.Status()
	assert.Contains(t, status, "service")
	assert.Contains(t, status, "fs-repository")
	assert.Contains(t, status, "prefs")
	svc := status["service"].(core.ServiceState)
	assert.Equal(t, 1, svc.Notes)
	assert.Equal(t, "fs-repository", svc.RepositoryType)
}

func TestOpen_Metrics(t *testing.T) {
	collector := metrics.NewCollector("")
	app := openApp(t, t.TempDir(), platform.WithMetrics(collector))
	ctx := context.Background()

	path := writeRecording(t, app, "a.3gp", "x")
	_, batch, err := app.Service.CreateAudioNote(ctx, "ToDos", path)
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err = batch.Wait(waitCtx)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Recognitions.WithLabelValues("ok")))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(collector.Notifications.WithLabelValues(string(core.NotifyTranscriptionCompleted))) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestOpen_FailedStartStopsBackgroundWork(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fs.DefaultPrefsFile), []byte("categories: [unclosed"), 0644))

	before := runtime.NumGoroutine()
	for range 10 {
		_, err := platform.Open(context.Background(), dir,
			platform.WithTranscriber(&echoTranscriber{}), platform.WithDevSafety(false))
		require.ErrorContains(t, err, "failed to load categories")
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond, "goroutines before=%d now=%d", before, runtime.NumGoroutine())
}
