package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"
)

// PrefsDebounce is the quiet period before a change of prefs.yaml is reported.
const PrefsDebounce = 100 * time.Millisecond

// prefsWatcher reports changes of the preferences file, whoever wrote it.
type prefsWatcher struct {
	*worker.BaseWorker
	prefs     *PrefsStore
	onChange  func(context.Context)
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newPrefsWatcher(prefs *PrefsStore, onChange func(context.Context)) *prefsWatcher {
	return &prefsWatcher{
		BaseWorker: worker.NewBaseWorker("prefs-watcher"),
		prefs:      prefs,
		onChange:   onChange,
	}
}

func (w *prefsWatcher) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	// The file is replaced by rename on every write, so watch its directory.
	dir := filepath.Dir(w.prefs.Path())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(PrefsDebounce)
	w.prefs.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *prefsWatcher) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *prefsWatcher) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

func (w *prefsWatcher) run(ctx context.Context) (err error) {
	logger := w.prefs.logger
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.prefs.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.loop(ctx)
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *prefsWatcher) loop(ctx context.Context) error {
	name := filepath.Base(w.prefs.Path())
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Base(event.Name) != name || (event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write)) {
				continue
			}
			w.prefs.logger.Debug("preferences changed", "op", event.Op.String())
			w.debouncer.trigger(func() { w.onChange(ctx) })

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.prefs.logger.Error("fsnotify error", "error", wErr)
		}
	}
}

// Watch calls onChange after prefs.yaml changed on disk. The watcher runs
// under a supervisor that restarts it when it fails. The returned function
// stops it.
func (p *PrefsStore) Watch(ctx context.Context, onChange func(context.Context)) (func(context.Context) error, error) {
	spec := supervisor.Spec{
		Name: "prefs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return newPrefsWatcher(p, onChange), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     5,
			MaxDuration:     10 * time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("prefs", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start preferences watcher: %w", err)
	}
	return sup.Stop, nil
}
