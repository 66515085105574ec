package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
)

// DefaultEventBuffer is the size of each Watch channel.
const DefaultEventBuffer = 100

// Config wires the Service to its collaborators.
type Config struct {
	Notes      NoteRepository
	Categories CategoryRepository

	Assets   AssetRemover
	Audio    AudioSource
	Settings SettingsSource

	Transcriber Transcriber
	Notifier    Notifier
	Logger      *slog.Logger

	// ManualTranscription disables transcribing new recordings automatically.
	ManualTranscription bool
	Pacing              time.Duration
	QueueLimit          int
	EventBuffer         int

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Service is the entry point used by the capture, settings and UI collaborators.
// Every read and write of the store and the category registry is executed on
// the foreground loop; transcription runs on the scheduler's worker.
type Service struct {
	cfg        Config
	loop       *Loop
	store      *Store
	categories *Categories
	scheduler  *Scheduler

	mu          sync.RWMutex
	started     bool
	loopTask    lifecycle.Task
	subscribers []chan Event
	done        chan struct{}
	closeOnce   sync.Once
}

// NewService creates a Service. Call Start before use.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Logger: cfg.Logger}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}

	s := &Service{
		cfg:        cfg,
		loop:       NewLoop(0),
		store:      NewStore(),
		categories: NewCategories(nil),
		done:       make(chan struct{}),
	}
	s.scheduler = NewScheduler(SchedulerConfig{
		Transcriber: cfg.Transcriber,
		Audio:       cfg.Audio,
		Settings:    cfg.Settings,
		Loop:        s.loop,
		Complete:    s.complete,
		Notifier:    cfg.Notifier,
		Logger:      cfg.Logger,
		Pacing:      cfg.Pacing,
		QueueLimit:  cfg.QueueLimit,
	})
	s.store.Observe(s.broadcast)
	return s
}

// Start runs the foreground loop and the transcription worker, then loads
// categories and notes. A malformed note document is reported and the
// session continues with an empty store. When Start fails, the loop and the
// worker are stopped again.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("service already started")
	}
	s.started = true
	s.loopTask = lifecycle.Go(ctx, s.loop.Run, lifecycle.WithErrorHandler(func(err error) {
		s.cfg.Logger.Error("foreground loop stopped", "error", err)
	}))
	s.mu.Unlock()

	err := s.scheduler.Start(ctx)
	if err == nil {
		err = s.load(ctx)
	}
	if err != nil {
		_ = s.Close(context.WithoutCancel(ctx))
		return err
	}
	return nil
}

func (s *Service) load(ctx context.Context) error {
	if err := s.ReloadCategories(ctx); err != nil {
		return err
	}

	return s.loop.Call(ctx, func() error {
		notes, err := s.cfg.Notes.Load(ctx)
		if err == nil {
			err = s.store.Replace(notes)
		}
		if err != nil {
			s.cfg.Logger.Error("failed to load notes, starting empty", "error", err)
			s.cfg.Notifier.Notify(Notification{Kind: NotifyLoadFailed, Err: err})
			return s.store.Replace(nil)
		}
		s.cfg.Logger.Debug("notes loaded", "count", len(notes))
		return nil
	})
}

// Close drains the scheduler, stops the loop and ends every Watch stream.
// Queued transcriptions are dropped; the in-flight one may finish until ctx
// ends. Close is idempotent.
func (s *Service) Close(ctx context.Context) error {
	err := s.scheduler.Close(ctx)
	s.loop.Stop()

	s.mu.Lock()
	task := s.loopTask
	s.mu.Unlock()
	if task != nil {
		_ = task.Wait()
	}

	s.closeOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	return err
}

// --- Notes ---

// CreateTextNote files a typed note under category.
func (s *Service) CreateTextNote(ctx context.Context, category, text string) (Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Note{}, ErrEmptyText
	}

	var note Note
	err := s.loop.Call(ctx, func() error {
		var err error
		note, err = s.create(ctx, KindText, category, func(n *Note) { n.Text = text })
		return err
	})
	return note, err
}

// CreateAudioNote files a recording under category. Unless manual
// transcription is configured, the note is queued for transcription and the
// returned batch tracks it.
func (s *Service) CreateAudioNote(ctx context.Context, category, audioPath string) (Note, *Batch, error) {
	if strings.TrimSpace(audioPath) == "" {
		return Note{}, nil, ErrEmptyAudioPath
	}

	var note Note
	err := s.loop.Call(ctx, func() error {
		var err error
		note, err = s.create(ctx, KindAudio, category, func(n *Note) { n.AudioPath = audioPath })
		return err
	})
	if err != nil || s.cfg.ManualTranscription {
		return note, nil, err
	}

	batch, err := s.scheduler.SubmitOne(note)
	if err != nil {
		s.cfg.Logger.Warn("could not queue transcription", "note", note.ID, "error", err)
		return note, nil, nil
	}
	return note, batch, nil
}

// create runs on the loop.
func (s *Service) create(ctx context.Context, kind Kind, category string, fill func(*Note)) (Note, error) {
	if !s.categories.Contains(category) {
		return Note{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	now := s.cfg.Clock().Round(0)
	n := Note{
		ID:        s.nextID(kind, now),
		Kind:      kind,
		Category:  category,
		CreatedAt: now,
	}
	fill(&n)
	if err := n.Validate(); err != nil {
		return Note{}, err
	}
	if err := s.store.Add(n); err != nil {
		return Note{}, err
	}
	s.persist(ctx)
	return n, nil
}

// nextID advances the millisecond component until the id is free.
func (s *Service) nextID(kind Kind, t time.Time) string {
	id := NewID(kind, t)
	for s.store.Contains(id) {
		t = t.Add(time.Millisecond)
		id = NewID(kind, t)
	}
	return id
}

// Delete removes a note and, for recordings, its audio asset.
// It reports whether a note was removed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := s.loop.Call(ctx, func() error {
		n, ok := s.store.Remove(id)
		if !ok {
			return nil
		}
		removed = true
		if n.IsAudio() && s.cfg.Assets != nil {
			if err := s.cfg.Assets.Remove(n.AudioPath); err != nil {
				s.cfg.Logger.Warn("failed to delete audio asset", "note", id, "path", n.AudioPath, "error", err)
			}
		}
		s.persist(ctx)
		return nil
	})
	return removed, err
}

// SetDone moves a note between the active and completed lists.
func (s *Service) SetDone(ctx context.Context, id string, done bool) error {
	return s.loop.Call(ctx, func() error {
		if err := s.store.SetDone(id, done); err != nil {
			return err
		}
		s.persist(ctx)
		return nil
	})
}

// ToggleDone flips the status of a note and returns the new value.
func (s *Service) ToggleDone(ctx context.Context, id string) (bool, error) {
	var done bool
	err := s.loop.Call(ctx, func() error {
		n, ok := s.store.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		done = !n.Done
		if err := s.store.SetDone(id, done); err != nil {
			return err
		}
		s.persist(ctx)
		return nil
	})
	return done, err
}

// Note returns the note with the given id.
func (s *Service) Note(ctx context.Context, id string) (Note, error) {
	var n Note
	err := s.loop.Call(ctx, func() error {
		var ok bool
		if n, ok = s.store.Get(id); !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
	return n, err
}

// ActiveNotes returns the notes not yet done, newest first.
func (s *Service) ActiveNotes(ctx context.Context) ([]Note, error) {
	var notes []Note
	err := s.loop.Call(ctx, func() error {
		notes = slices.Collect(s.store.Active())
		return nil
	})
	return notes, err
}

// CompletedNotes returns the done notes, newest first.
func (s *Service) CompletedNotes(ctx context.Context) ([]Note, error) {
	var notes []Note
	err := s.loop.Call(ctx, func() error {
		notes = slices.Collect(s.store.Completed())
		return nil
	})
	return notes, err
}

// ReferencedAudio returns the asset paths still referenced by notes.
func (s *Service) ReferencedAudio(ctx context.Context) (map[string]bool, error) {
	refs := make(map[string]bool)
	err := s.loop.Call(ctx, func() error {
		for _, n := range s.store.All() {
			if n.IsAudio() {
				refs[n.AudioPath] = true
			}
		}
		return nil
	})
	return refs, err
}

// --- Transcription ---

// Transcribe queues one recording, transcribed or not.
func (s *Service) Transcribe(ctx context.Context, id string) (*Batch, error) {
	var n Note
	err := s.loop.Call(ctx, func() error {
		var ok bool
		if n, ok = s.store.Get(id); !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.scheduler.SubmitOne(n)
}

// TranscribeAll queues every active recording without text.
func (s *Service) TranscribeAll(ctx context.Context) (*Batch, error) {
	var notes []Note
	if err := s.loop.Call(ctx, func() error {
		notes = s.store.All()
		return nil
	}); err != nil {
		return nil, err
	}
	return s.scheduler.SubmitBatch(notes)
}

// complete runs on the loop, called by the scheduler.
func (s *Service) complete(id, text string) error {
	if err := s.store.UpdateText(id, text); err != nil {
		return err
	}
	s.persist(context.Background())
	return nil
}

// persist writes the store; failures are reported, memory stays authoritative.
func (s *Service) persist(ctx context.Context) {
	if err := s.cfg.Notes.Save(context.WithoutCancel(ctx), s.store.All()); err != nil {
		s.cfg.Logger.Error("failed to save notes", "error", err)
		s.cfg.Notifier.Notify(Notification{Kind: NotifySaveFailed, Err: err})
	}
}

// --- Categories ---

// Categories returns the categories in user order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	var names []string
	err := s.loop.Call(ctx, func() error {
		names = s.categories.List()
		return nil
	})
	return names, err
}

// AddCategory appends a category.
func (s *Service) AddCategory(ctx context.Context, name string) error {
	return s.updateCategories(ctx, func(c *Categories) error { return c.Add(name) })
}

// RemoveCategory deletes a category; notes keep their label.
func (s *Service) RemoveCategory(ctx context.Context, name string) error {
	return s.updateCategories(ctx, func(c *Categories) error { return c.Remove(name) })
}

// ReorderCategory moves a category from one position to another.
func (s *Service) ReorderCategory(ctx context.Context, from, to int) error {
	return s.updateCategories(ctx, func(c *Categories) error { return c.Reorder(from, to) })
}

func (s *Service) updateCategories(ctx context.Context, fn func(*Categories) error) error {
	return s.loop.Call(ctx, func() error {
		if err := fn(s.categories); err != nil {
			return err
		}
		if s.cfg.Categories == nil {
			return nil
		}
		if err := s.cfg.Categories.SaveCategories(context.WithoutCancel(ctx), s.categories.List()); err != nil {
			s.cfg.Logger.Error("failed to save categories", "error", err)
			s.cfg.Notifier.Notify(Notification{Kind: NotifySaveFailed, Err: err})
		}
		return nil
	})
}

// ReloadCategories re-reads the persisted categories, e.g. after the
// settings collaborator changed them.
func (s *Service) ReloadCategories(ctx context.Context) error {
	var names []string
	if s.cfg.Categories != nil {
		var err error
		if names, err = s.cfg.Categories.LoadCategories(ctx); err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}
	}
	return s.loop.Call(ctx, func() error {
		s.categories.Replace(names)
		s.cfg.Logger.Debug("categories loaded", "categories", s.categories.List())
		return nil
	})
}

// --- Events ---

// Watch streams store events until ctx ends or the service is closed.
// Events are dropped for a consumer whose buffer is full.
func (s *Service) Watch(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, s.cfg.EventBuffer)

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil, fmt.Errorf("service not started")
	}
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if i := slices.Index(s.subscribers, ch); i >= 0 {
			s.subscribers = slices.Delete(s.subscribers, i, i+1)
			close(ch)
		}
	}()
	return ch, nil
}

func (s *Service) broadcast(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- e:
		default:
			s.cfg.Logger.Warn("event subscriber is slow, dropping event", "event", e.String())
		}
	}
}
