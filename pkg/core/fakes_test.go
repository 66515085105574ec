package core_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/voxnotes/pkg/core"
)

// memNotes implements core.NoteRepository in memory.
type memNotes struct {
	mu      sync.Mutex
	notes   []core.Note
	saves   int
	saveErr error
	loadErr error
}

func (m *memNotes) Save(ctx context.Context, notes []core.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.notes = slices.Clone(notes)
	return nil
}

func (m *memNotes) Load(ctx context.Context) ([]core.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return slices.Clone(m.notes), nil
}

func (m *memNotes) saved() []core.Note {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.notes)
}

// memCategories implements core.CategoryRepository in memory.
type memCategories struct {
	mu    sync.Mutex
	names []string
}

func (m *memCategories) LoadCategories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.names), nil
}

func (m *memCategories) SaveCategories(ctx context.Context, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = slices.Clone(names)
	return nil
}

func (m *memCategories) list() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.names)
}

// memAssets implements the asset collaborators over a set of paths.
type memAssets struct {
	mu      sync.Mutex
	files   map[string]bool
	removed []string
}

func newMemAssets(paths ...string) *memAssets {
	a := &memAssets{files: make(map[string]bool)}
	for _, p := range paths {
		a.files[p] = true
	}
	return a
}

func (a *memAssets) Exists(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.files[path]
}

func (a *memAssets) Remove(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, path)
	a.removed = append(a.removed, path)
	return nil
}

func (a *memAssets) ReadAudio(path string) ([]byte, error) {
	if !a.Exists(path) {
		return nil, errors.New("no such file")
	}
	return []byte(path), nil
}

type staticSettings struct{}

func (staticSettings) TranscriptionSettings(ctx context.Context) (core.Settings, error) {
	return core.Settings{Credentials: []byte("{}"), LanguageCode: "de-DE"}, nil
}

// fakeTranscriber answers "text of <audio>" unless fn overrides it.
type fakeTranscriber struct {
	mu    sync.Mutex
	calls []time.Time
	fn    func(ctx context.Context, audio string) (string, error)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, lang string, creds []byte) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, string(audio))
	}
	return "text of " + string(audio), nil
}

func (f *fakeTranscriber) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// recordingNotifier collects notifications.
type recordingNotifier struct {
	mu   sync.Mutex
	seen []core.Notification
}

func (r *recordingNotifier) Notify(n core.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recordingNotifier) ofKind(kind core.NotificationKind) []core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.Notification
	for _, n := range r.seen {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// stepClock returns base, base+1s, base+2s, ...
func stepClock(base time.Time) func() time.Time {
	var mu sync.Mutex
	next := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

// runLoop starts a foreground loop for the duration of the test.
func runLoop(t *testing.T) *core.Loop {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := core.NewLoop(0)
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(cancel)
	return loop
}

func audioNote(id, path string, created time.Time) core.Note {
	return core.Note{ID: id, Kind: core.KindAudio, Category: "ToDos", CreatedAt: created, AudioPath: path}
}

func textNote(id, text string, created time.Time) core.Note {
	return core.Note{ID: id, Kind: core.KindText, Category: "ToDos", CreatedAt: created, Text: text}
}
