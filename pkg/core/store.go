package core

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// Store is the in-memory collection of notes.
// It owns identity, ordering and the active/completed split.
//
// A Store is not safe for concurrent use: it belongs to the foreground loop
// and every access must run there (see Loop).
type Store struct {
	// notes keeps logical insertion order, head first.
	notes []Note

	// Cached views, rebuilt lazily after any mutation.
	valid     bool
	sorted    []Note
	active    []Note
	completed []Note

	observers []func(Event)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Observe registers fn to be called after every mutation.
func (s *Store) Observe(fn func(Event)) {
	s.observers = append(s.observers, fn)
}

// Len returns the number of notes.
func (s *Store) Len() int {
	return len(s.notes)
}

// Add inserts the note at the logical head.
func (s *Store) Add(n Note) error {
	if s.indexOf(n.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
	}
	s.notes = slices.Insert(s.notes, 0, n)
	s.changed(EventCreate, n.ID)
	return nil
}

// Remove deletes the note and reports whether something was removed.
func (s *Store) Remove(id string) (Note, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Note{}, false
	}
	removed := s.notes[i]
	s.notes = slices.Delete(s.notes, i, i+1)
	s.changed(EventDelete, id)
	return removed, true
}

// SetDone changes the status of a note, moving it between partitions.
func (s *Store) SetDone(id string, done bool) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.notes[i].Done = done
	s.changed(EventModify, id)
	return nil
}

// UpdateText attaches a transcription to a note.
// It fails with ErrNotFound when the note was deleted in the meantime.
func (s *Store) UpdateText(id, text string) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.notes[i].Text = text
	s.changed(EventModify, id)
	return nil
}

// Get returns a copy of the note with the given id.
func (s *Store) Get(id string) (Note, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Note{}, false
	}
	return s.notes[i], true
}

// Contains reports whether a note with the id exists.
func (s *Store) Contains(id string) bool {
	return s.indexOf(id) >= 0
}

// Replace installs a loaded collection. The given order is taken as the
// logical insertion order, head first.
func (s *Store) Replace(notes []Note) error {
	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	s.notes = slices.Clone(notes)
	s.changed(EventReload, "")
	return nil
}

// All returns every note in visible order (newest first).
func (s *Store) All() []Note {
	s.rebuild()
	return slices.Clone(s.sorted)
}

// Active yields the notes that are not done, newest first.
func (s *Store) Active() iter.Seq[Note] {
	s.rebuild()
	return snapshot(s.active)
}

// Completed yields the notes that are done, newest first.
func (s *Store) Completed() iter.Seq[Note] {
	s.rebuild()
	return snapshot(s.completed)
}

func snapshot(view []Note) iter.Seq[Note] {
	// The cached slice is replaced, never mutated, on rebuild, so holding
	// it keeps the sequence stable and restartable.
	return func(yield func(Note) bool) {
		for _, n := range view {
			if !yield(n) {
				return
			}
		}
	}
}

func (s *Store) rebuild() {
	if s.valid {
		return
	}
	sorted := slices.Clone(s.notes)
	slices.SortStableFunc(sorted, func(a, b Note) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	var active, completed []Note
	for _, n := range sorted {
		if n.Done {
			completed = append(completed, n)
		} else {
			active = append(active, n)
		}
	}

	s.sorted = sorted
	s.active = active
	s.completed = completed
	s.valid = true
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.notes, func(n Note) bool { return n.ID == id })
}

func (s *Store) changed(t EventType, id string) {
	s.valid = false
	s.sorted, s.active, s.completed = nil, nil, nil

	e := Event{Type: t, ID: id, Timestamp: time.Now().Unix()}
	for _, fn := range s.observers {
		fn(e)
	}
}
