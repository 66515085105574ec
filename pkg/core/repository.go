package core

import "context"

// NoteRepository persists the whole note collection as one document.
// The in-memory store stays the authority; a failed Save never rolls it back.
type NoteRepository interface {
	// Save writes the notes, skipping recordings whose asset no longer exists.
	Save(ctx context.Context, notes []Note) error

	// Load reads the persisted notes. A missing document yields an empty slice.
	// Corrupt or unrecognized records fail the whole load with ErrMalformedStore.
	Load(ctx context.Context) ([]Note, error)
}

// CategoryRepository persists the ordered category list.
type CategoryRepository interface {
	// LoadCategories returns nil when nothing was persisted yet.
	LoadCategories(ctx context.Context) ([]string, error)
	SaveCategories(ctx context.Context, categories []string) error
}

// AssetChecker tells whether an audio asset still exists.
type AssetChecker interface {
	Exists(path string) bool
}

// AssetRemover deletes the audio asset behind a deleted note.
type AssetRemover interface {
	Remove(path string) error
}

// AudioSource reads the bytes of an audio asset.
type AudioSource interface {
	ReadAudio(path string) ([]byte, error)
}

// Settings carries what the recognizer needs for one call.
type Settings struct {
	Credentials  []byte
	LanguageCode string
}

// SettingsSource supplies credentials and language at transcription time.
type SettingsSource interface {
	TranscriptionSettings(ctx context.Context) (Settings, error)
}

// Transcriber performs one remote recognition call.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, languageCode string, credentials []byte) (string, error)
}

// Resolvable drops recordings whose asset is gone. Text notes are always kept.
func Resolvable(notes []Note, assets AssetChecker) []Note {
	if assets == nil {
		return notes
	}
	kept := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.IsAudio() && !assets.Exists(n.AudioPath) {
			continue
		}
		kept = append(kept, n)
	}
	return kept
}
