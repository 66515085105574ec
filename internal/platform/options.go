package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/voxnotes/pkg/adapters/metrics"
	"github.com/aretw0/voxnotes/pkg/core"
)

// Adapters understood by Open.
const (
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
)

// options holds the internal configuration for a voxnotes session.
type options struct {
	logger      *slog.Logger
	adapter     string
	notes       core.NoteRepository
	transcriber core.Transcriber
	notifier    core.Notifier
	metrics     *metrics.Collector

	manualTranscription bool
	pacing              time.Duration
	queueLimit          int
	eventBuffer         int

	endpoint   string
	recordings string
	history    bool
	mustExist  bool
	forceTemp  bool
	devSafety  bool
	watchPrefs bool
}

// Option configures Open.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		adapter:   AdapterFS,
		devSafety: true,
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAdapter selects the note storage by name ("fs" or "sqlite"). Defaults to "fs".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithNoteRepository injects a note storage, skipping the named adapter.
func WithNoteRepository(repo core.NoteRepository) Option {
	return func(o *options) {
		o.notes = repo
	}
}

// WithTranscriber replaces the Speech-to-Text client.
func WithTranscriber(t core.Transcriber) Option {
	return func(o *options) {
		o.transcriber = t
	}
}

// WithNotifier receives user-facing notifications. Defaults to logging them.
func WithNotifier(n core.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithMetrics records notifications, recognition calls and the queue in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// WithManualTranscription stops new recordings from being transcribed automatically.
func WithManualTranscription(manual bool) Option {
	return func(o *options) {
		o.manualTranscription = manual
	}
}

// WithPacing sets the pause between two recognition calls of a batch.
// Negative disables pacing.
func WithPacing(d time.Duration) Option {
	return func(o *options) {
		o.pacing = d
	}
}

// WithQueueLimit bounds the transcription queue. Zero means unbounded.
func WithQueueLimit(n int) Option {
	return func(o *options) {
		o.queueLimit = n
	}
}

// WithEventBuffer sets the size of each Watch channel.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithEndpoint overrides the recognize endpoint of the default client.
func WithEndpoint(url string) Option {
	return func(o *options) {
		o.endpoint = url
	}
}

// WithRecordingsDir sets where recordings live. Defaults to <dir>/recordings.
func WithRecordingsDir(dir string) Option {
	return func(o *options) {
		o.recordings = dir
	}
}

// WithHistory commits notes.json to a git repository after every save (fs only).
func WithHistory(enabled bool) Option {
	return func(o *options) {
		o.history = enabled
	}
}

// WithMustExist fails Open when the data directory does not exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run`.
// By default (true) the data directory is moved into the system temp dir.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithPrefsWatch reloads categories whenever prefs.yaml changes on disk.
func WithPrefsWatch(enabled bool) Option {
	return func(o *options) {
		o.watchPrefs = enabled
	}
}
