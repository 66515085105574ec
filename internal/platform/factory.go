package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/voxnotes/pkg/adapters/fs"
	"github.com/aretw0/voxnotes/pkg/adapters/sqlite"
	"github.com/aretw0/voxnotes/pkg/core"
	"github.com/aretw0/voxnotes/pkg/transcribe"
)

// DefaultRecordingsDir is the recordings directory inside the data directory.
const DefaultRecordingsDir = "recordings"

// App is a started voxnotes session and the collaborators it was wired with.
type App struct {
	Service *core.Service
	Prefs   *fs.PrefsStore
	Assets  *fs.Assets
	// Root is the resolved data directory.
	Root string

	notes       core.NoteRepository
	transcriber core.Transcriber
	closers     []func(context.Context) error
}

// Open wires a session on the data directory dir and starts it.
//
//	app, err := platform.Open(ctx, "./notes", platform.WithAdapter("sqlite"))
func Open(ctx context.Context, dir string, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	useTemp := o.forceTemp || (IsDevRun() && o.devSafety)
	root := ResolveDataPath(dir, useTemp)
	if o.logger != nil && useTemp {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", dir, "resolved_path", root)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	recordings := o.recordings
	if recordings == "" {
		recordings = filepath.Join(root, DefaultRecordingsDir)
	}

	app := &App{
		Root:   root,
		Assets: fs.NewAssets(recordings),
		Prefs:  fs.NewPrefsStore(filepath.Join(root, fs.DefaultPrefsFile), o.logger),
	}

	if err := app.initNotes(ctx, o); err != nil {
		return nil, err
	}

	app.transcriber = o.transcriber
	if app.transcriber == nil {
		app.transcriber = transcribe.New(transcribe.Config{Endpoint: o.endpoint, Logger: o.logger})
	}
	transcriber, notifier := app.transcriber, o.notifier
	if o.metrics != nil {
		if notifier == nil {
			notifier = core.LogNotifier{Logger: o.logger}
		}
		notifier = o.metrics.Notifier(notifier)
		transcriber = o.metrics.Transcriber(transcriber)
	}

	app.Service = core.NewService(core.Config{
		Notes:               app.notes,
		Categories:          app.Prefs,
		Assets:              app.Assets,
		Audio:               app.Assets,
		Settings:            app.Prefs,
		Transcriber:         transcriber,
		Notifier:            notifier,
		Logger:              o.logger,
		ManualTranscription: o.manualTranscription,
		Pacing:              o.pacing,
		QueueLimit:          o.queueLimit,
		EventBuffer:         o.eventBuffer,
	})
	if err := app.Service.Start(ctx); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	app.closers = append([]func(context.Context) error{app.Service.Close}, app.closers...)

	if o.metrics != nil {
		o.metrics.WatchScheduler("", app.Service.SchedulerState)
	}

	if o.watchPrefs {
		stop, err := app.Prefs.Watch(ctx, func(ctx context.Context) {
			if err := app.Service.ReloadCategories(ctx); err != nil && o.logger != nil {
				o.logger.Warn("failed to reload categories", "error", err)
			}
		})
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		app.closers = append([]func(context.Context) error{stop}, app.closers...)
	}

	return app, nil
}

// initNotes selects and initializes the note storage.
func (a *App) initNotes(ctx context.Context, o *options) error {
	if o.notes != nil {
		a.notes = o.notes
		return nil
	}

	switch o.adapter {
	case AdapterFS, "":
		repo := fs.NewRepository(fs.Config{
			Path:      a.Root,
			MustExist: o.mustExist,
			Logger:    o.logger,
			Assets:    a.Assets,
			History:   o.history,
		})
		if err := repo.Initialize(ctx); err != nil {
			return err
		}
		a.notes = repo

	case AdapterSQLite:
		if o.history {
			return fmt.Errorf("history is not supported by the %s adapter", AdapterSQLite)
		}
		if o.mustExist {
			if _, err := os.Stat(a.Root); err != nil {
				return fmt.Errorf("data path does not exist: %s", a.Root)
			}
		}
		if err := os.MkdirAll(filepath.Join(a.Root, fs.DefaultSystemDir), 0755); err != nil {
			return fmt.Errorf("failed to create system directory: %w", err)
		}
		repo, err := sqlite.Open(ctx, sqlite.Config{
			Path:   filepath.Join(a.Root, sqlite.DefaultFile),
			Logger: o.logger,
			Assets: a.Assets,
		})
		if err != nil {
			return err
		}
		a.notes = repo
		a.closers = append(a.closers, func(context.Context) error { return repo.Close() })

	default:
		return fmt.Errorf("unknown adapter: %s", o.adapter)
	}
	return nil
}

// Notes returns the note storage in use.
func (a *App) Notes() core.NoteRepository {
	return a.notes
}

// Close stops the prefs watcher, drains the service and releases the storage.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, c := range a.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
