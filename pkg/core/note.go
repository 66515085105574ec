package core

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes recorded notes from typed ones.
type Kind string

const (
	KindAudio Kind = "AUDIO"
	KindText  Kind = "TEXT"
)

// ParseKind maps the persisted type name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAudio, KindText:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown note type %q", s)
}

// Note is the central entity of the domain.
// It is either a typed text or a recording whose Text holds the transcription.
// ID, Kind, Category, CreatedAt and AudioPath never change after creation.
type Note struct {
	ID        string
	Kind      Kind
	Category  string
	CreatedAt time.Time
	Text      string
	AudioPath string
	Done      bool
}

// IsAudio reports whether the note wraps a recording.
func (n Note) IsAudio() bool {
	return n.Kind == KindAudio
}

// Transcribed reports whether an audio note already carries text.
func (n Note) Transcribed() bool {
	return strings.TrimSpace(n.Text) != ""
}

// NeedsTranscription reports whether the note is eligible for batch transcription:
// an active recording without text.
func (n Note) NeedsTranscription() bool {
	return n.IsAudio() && !n.Done && !n.Transcribed()
}

// Equal compares notes field by field; timestamps are compared as instants.
func (n Note) Equal(o Note) bool {
	return n.ID == o.ID &&
		n.Kind == o.Kind &&
		n.Category == o.Category &&
		n.CreatedAt.Equal(o.CreatedAt) &&
		n.Text == o.Text &&
		n.AudioPath == o.AudioPath &&
		n.Done == o.Done
}

// Validate checks the structural invariants of a note.
func (n Note) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("note has no ID")
	}
	if strings.TrimSpace(n.Category) == "" {
		return fmt.Errorf("note %s has no category", n.ID)
	}
	if n.CreatedAt.IsZero() {
		return fmt.Errorf("note %s has no timestamp", n.ID)
	}
	switch n.Kind {
	case KindText:
		if n.AudioPath != "" {
			return fmt.Errorf("text note %s must not reference audio", n.ID)
		}
		if strings.TrimSpace(n.Text) == "" {
			return fmt.Errorf("%w: note %s", ErrEmptyText, n.ID)
		}
	case KindAudio:
		if n.AudioPath == "" {
			return fmt.Errorf("%w: note %s", ErrEmptyAudioPath, n.ID)
		}
	default:
		return fmt.Errorf("note %s has unknown kind %q", n.ID, n.Kind)
	}
	return nil
}

// NewID builds the identifier for a note created at t: "<kind>_<epoch-millis>".
func NewID(kind Kind, t time.Time) string {
	return fmt.Sprintf("%s_%d", strings.ToLower(string(kind)), t.UnixMilli())
}
