package voxnotes

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/voxnotes/internal/platform"
	"github.com/aretw0/voxnotes/pkg/adapters/metrics"
	"github.com/aretw0/voxnotes/pkg/core"
)

// --- Types ---

// App is an open voxnotes session.
type App = platform.App

// Note is a public alias for the core note.
type Note = core.Note

// --- Configuration ---

// Option configures Open.
type Option = platform.Option

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithAdapter selects the note storage ("fs" or "sqlite").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithNoteRepository injects a custom note storage.
func WithNoteRepository(repo core.NoteRepository) Option {
	return platform.WithNoteRepository(repo)
}

// WithTranscriber replaces the Speech-to-Text client.
func WithTranscriber(t core.Transcriber) Option {
	return platform.WithTranscriber(t)
}

// WithNotifier receives user-facing notifications.
func WithNotifier(n core.Notifier) Option {
	return platform.WithNotifier(n)
}

// WithMetrics records notifications, recognition calls and the queue in c.
func WithMetrics(c *metrics.Collector) Option {
	return platform.WithMetrics(c)
}

// WithManualTranscription stops new recordings from being transcribed automatically.
func WithManualTranscription(manual bool) Option {
	return platform.WithManualTranscription(manual)
}

// WithPacing sets the pause between two recognition calls of a batch.
func WithPacing(d time.Duration) Option {
	return platform.WithPacing(d)
}

// WithQueueLimit bounds the transcription queue.
func WithQueueLimit(n int) Option {
	return platform.WithQueueLimit(n)
}

// WithEventBuffer sets the size of each Watch channel.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithEndpoint overrides the recognize endpoint.
func WithEndpoint(url string) Option {
	return platform.WithEndpoint(url)
}

// WithRecordingsDir sets where recordings live.
func WithRecordingsDir(dir string) Option {
	return platform.WithRecordingsDir(dir)
}

// WithHistory commits notes.json to git after every save.
func WithHistory(enabled bool) Option {
	return platform.WithHistory(enabled)
}

// WithMustExist fails Open when the data directory does not exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the sandbox used when running via `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithPrefsWatch reloads categories whenever prefs.yaml changes on disk.
func WithPrefsWatch(enabled bool) Option {
	return platform.WithPrefsWatch(enabled)
}

// --- Factory ---

// Open wires and starts a session on the data directory dir.
func Open(ctx context.Context, dir string, opts ...Option) (*App, error) {
	return platform.Open(ctx, dir, opts...)
}

// --- Safety & Utils ---

// ErrRootNotFound is returned by FindRoot when no data directory encloses the start.
var ErrRootNotFound = platform.ErrRootNotFound

// ResolveDataPath determines the actual data directory based on safety rules.
func ResolveDataPath(userPath string, forceTemp bool) string {
	return platform.ResolveDataPath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindRoot looks upwards for a data directory.
func FindRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
