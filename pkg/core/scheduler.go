package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
)

const (
	// DefaultPacing is the pause between two batch requests; the recognizer is rate limited.
	DefaultPacing = time.Second
	// DefaultQueueLimit bounds the number of waiting jobs.
	DefaultQueueLimit = 256

	// NoSpeechText marks a recording that was transcribed but contained nothing.
	NoSpeechText = "[No speech detected]"
	// ParseFailedText replaces a transcription whose response could not be parsed.
	ParseFailedText = "[Transcription parsing failed]"
)

// CompleteFunc writes a transcription back. It runs on the foreground loop.
type CompleteFunc func(id, text string) error

// SchedulerConfig wires the scheduler to its collaborators.
type SchedulerConfig struct {
	Transcriber Transcriber
	Audio       AudioSource
	Settings    SettingsSource
	// Loop is where Complete runs.
	Loop     *Loop
	Complete CompleteFunc
	Notifier Notifier
	Logger   *slog.Logger
	// Pacing is the delay before each batch item but the first. Zero means
	// DefaultPacing, a negative value disables pacing.
	Pacing     time.Duration
	QueueLimit int
}

type job struct {
	id        string
	category  string
	audioPath string
	index     int
	batch     *Batch
}

// Scheduler runs transcription jobs on a single background worker, in
// submission order, so at most one remote call is in flight.
type Scheduler struct {
	cfg SchedulerConfig

	mu       sync.Mutex
	queue    []job
	closed   bool
	started  bool
	inFlight string
	stats    SchedulerStats

	wake    chan struct{}
	closing chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc
}

// SchedulerStats counts processed jobs.
type SchedulerStats struct {
	Transcribed int `json:"transcribed"`
	Failed      int `json:"failed"`
	Discarded   int `json:"discarded"`
}

// NewScheduler creates a scheduler. Call Start before submitting.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Pacing == 0 {
		cfg.Pacing = DefaultPacing
	}
	if cfg.QueueLimit <= 0 {
		cfg.QueueLimit = DefaultQueueLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Logger: cfg.Logger}
	}
	return &Scheduler{
		cfg:     cfg,
		wake:    make(chan struct{}, 1),
		closing: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the background worker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	lifecycle.Go(runCtx, s.run, lifecycle.WithErrorHandler(func(err error) {
		s.cfg.Logger.Error("transcription worker stopped", "error", err)
	}))
	return nil
}

// SubmitOne queues a single note. It never blocks on the remote call.
func (s *Scheduler) SubmitOne(n Note) (*Batch, error) {
	if !n.IsAudio() {
		return nil, fmt.Errorf("%w: %s", ErrNotAudio, n.ID)
	}
	b := newBatch(1, true)
	if err := s.enqueue([]job{{id: n.ID, category: n.Category, audioPath: n.AudioPath, batch: b}}); err != nil {
		return nil, err
	}
	return b, nil
}

// SubmitBatch queues every active, untranscribed recording among notes.
// Items are processed sequentially with the pacing delay between them;
// a failing item does not stop the batch.
func (s *Scheduler) SubmitBatch(notes []Note) (*Batch, error) {
	var eligible []Note
	for _, n := range notes {
		if n.NeedsTranscription() {
			eligible = append(eligible, n)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNothingToTranscribe
	}

	b := newBatch(len(eligible), false)
	jobs := make([]job, 0, len(eligible))
	for i, n := range eligible {
		jobs = append(jobs, job{id: n.ID, category: n.Category, audioPath: n.AudioPath, index: i, batch: b})
	}
	if err := s.enqueue(jobs); err != nil {
		return nil, err
	}
	s.cfg.Notifier.Notify(Notification{Kind: NotifyBatchStarted, Count: len(eligible)})
	return b, nil
}

// Pending returns the number of queued jobs, excluding the one in flight.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close stops accepting jobs and drops the queued ones. The in-flight call
// may finish until ctx ends; after that it is abandoned.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closing)
	dropped := s.queue
	s.queue = nil
	started := s.started
	s.mu.Unlock()

	for _, j := range dropped {
		s.settle(j, false, ErrSchedulerClosed)
	}
	s.signal()

	if !started {
		return nil
	}
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Scheduler) enqueue(jobs []job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSchedulerClosed
	}
	if len(s.queue)+len(jobs) > s.cfg.QueueLimit {
		return fmt.Errorf("%w: %d pending", ErrQueueFull, len(s.queue))
	}
	s.queue = append(s.queue, jobs...)
	s.signal()
	return nil
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) next(ctx context.Context) (job, bool) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return job{}, false
		}
		if len(s.queue) > 0 {
			j := s.queue[0]
			s.queue = s.queue[1:]
			s.inFlight = j.id
			s.mu.Unlock()
			return j, true
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return job{}, false
		case <-s.wake:
		}
	}
}

// run is the worker loop.
func (s *Scheduler) run(ctx context.Context) error {
	defer close(s.stopped)
	for {
		j, ok := s.next(ctx)
		if !ok {
			return nil
		}
		s.process(ctx, j)

		s.mu.Lock()
		s.inFlight = ""
		s.mu.Unlock()
	}
}

func (s *Scheduler) process(ctx context.Context, j job) {
	if j.index > 0 && s.cfg.Pacing > 0 {
		if err := s.pause(ctx); err != nil {
			s.settle(j, false, err)
			return
		}
	}

	text, err := s.transcribe(ctx, j)
	if err != nil {
		s.settle(j, false, err)
		return
	}

	err = s.cfg.Loop.Call(ctx, func() error {
		return s.cfg.Complete(j.id, text)
	})
	switch {
	case err == nil:
		s.settle(j, true, nil)
	case errors.Is(err, ErrNotFound):
		s.cfg.Logger.Info("note deleted during transcription, discarding result", "note", j.id)
		s.settle(j, false, nil)
	default:
		s.settle(j, false, fmt.Errorf("store transcription: %w", err))
	}
}

func (s *Scheduler) transcribe(ctx context.Context, j job) (string, error) {
	audio, err := s.cfg.Audio.ReadAudio(j.audioPath)
	if err != nil {
		return "", fmt.Errorf("read audio %s: %w", j.audioPath, err)
	}
	settings, err := s.cfg.Settings.TranscriptionSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("load transcription settings: %w", err)
	}

	s.cfg.Logger.Debug("transcribing", "note", j.id, "bytes", len(audio), "language", settings.LanguageCode)
	text, err := s.cfg.Transcriber.Transcribe(ctx, audio, settings.LanguageCode, settings.Credentials)
	if errors.Is(err, ErrTranscriptionParse) {
		s.cfg.Logger.Warn("unreadable transcription response", "note", j.id, "error", err)
		return ParseFailedText, nil
	}
	if err != nil {
		return "", err
	}
	return text, nil
}

// settle records the outcome and emits the matching notifications.
func (s *Scheduler) settle(j job, updated bool, err error) {
	s.mu.Lock()
	switch {
	case err != nil:
		s.stats.Failed++
	case updated:
		s.stats.Transcribed++
	default:
		s.stats.Discarded++
	}
	s.mu.Unlock()

	switch {
	case err != nil:
		s.cfg.Notifier.Notify(Notification{Kind: NotifyTranscriptionFailed, NoteID: j.id, Category: j.category, Err: err})
	case updated && j.batch.single:
		s.cfg.Notifier.Notify(Notification{Kind: NotifyTranscriptionCompleted, NoteID: j.id, Category: j.category})
	}

	if drained := j.batch.finish(j.id, updated, err); drained && !j.batch.single {
		s.cfg.Notifier.Notify(Notification{Kind: NotifyBatchCompleted, Count: len(j.batch.Result().Updated)})
	}
}

// pause waits for the pacing delay. It fails early when ctx ends or the
// scheduler is closed.
func (s *Scheduler) pause(ctx context.Context) error {
	t := time.NewTimer(s.cfg.Pacing)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closing:
		return ErrSchedulerClosed
	case <-t.C:
		return nil
	}
}
