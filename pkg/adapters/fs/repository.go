package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/voxnotes/pkg/core"
	"github.com/aretw0/voxnotes/pkg/git"
)

const (
	// DefaultNotesFile is the document holding every note.
	DefaultNotesFile = "notes.json"
	// DefaultSystemDir marks a data directory.
	DefaultSystemDir = ".voxnotes"
)

// Repository implements core.NoteRepository with a single JSON document.
type Repository struct {
	Path   string
	git    *git.Client
	config Config

	mu       sync.RWMutex
	lastSave *time.Time
	lastLoad *time.Time
	count    int
}

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	MustExist bool
	Logger    *slog.Logger
	SystemDir string // e.g. ".voxnotes"
	NotesFile string // e.g. "notes.json"
	// Assets filters out recordings whose file is gone, on save and load.
	Assets core.AssetChecker
	// History commits the notes document to a git repository after every save.
	History bool
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.NotesFile == "" {
		config.NotesFile = DefaultNotesFile
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Repository{
		Path:   config.Path,
		git:    git.NewClient(config.Path, config.SystemDir+".lock", config.Logger),
		config: config,
	}
}

// File returns the path of the notes document.
func (r *Repository) File() string {
	return filepath.Join(r.Path, r.config.NotesFile)
}

// Initialize creates the data directory and, with history enabled, the git repository.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("data path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("data path is not a directory: %s", r.Path)
		}
	} else {
		if err := os.MkdirAll(r.Path, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Join(r.Path, r.config.SystemDir), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}

	if !r.config.History {
		return nil
	}
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}
	if r.git.IsRepo() {
		return nil
	}
	if err := r.git.Init(ctx); err != nil {
		return fmt.Errorf("failed to git init: %w", err)
	}
	if err := r.ensureIgnore(); err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	return nil
}

// ensureIgnore keeps everything but the notes document out of history.
func (r *Repository) ensureIgnore() error {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	if _, err := os.Stat(ignorePath); err == nil {
		return nil
	}
	content := strings.Join([]string{"/*", "!/.gitignore", "!/" + r.config.NotesFile, ""}, "\n")
	_, err := replaceFile(ignorePath, []byte(content), 0644)
	return err
}

// Save writes the notes in the given order. Recordings whose asset is gone are skipped.
//
// Workflow:
//  1. Filter unresolvable recordings.
//  2. Serialize and replace the document unless the content is identical.
//  3. (If history enabled and the document changed) commit it.
func (r *Repository) Save(ctx context.Context, notes []core.Note) error {
	kept := core.Resolvable(notes, r.config.Assets)
	if dropped := len(notes) - len(kept); dropped > 0 {
		r.config.Logger.Debug("skipping recordings with missing assets", "count", dropped)
	}

	data, err := MarshalNotes(kept)
	if err != nil {
		return fmt.Errorf("failed to serialize notes: %w", err)
	}
	changed, err := replaceFile(r.File(), data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write notes: %w", err)
	}

	now := time.Now()
	r.mu.Lock()
	r.lastSave = &now
	r.count = len(kept)
	r.mu.Unlock()

	if r.config.History && changed {
		if err := r.commit(ctx, git.FormatMessage(git.TypeChore, "notes", fmt.Sprintf("save %d notes", len(kept)), "")); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) commit(ctx context.Context, msg string) error {
	unlock, err := r.git.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	status, err := r.git.Status(ctx, r.config.NotesFile)
	if err != nil {
		return err
	}
	if status == "" {
		return nil
	}
	if err := r.git.Add(ctx, r.config.NotesFile); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	if err := r.git.Commit(ctx, msg); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

// Load reads the notes document. A missing document is an empty collection.
func (r *Repository) Load(ctx context.Context) ([]core.Note, error) {
	data, err := os.ReadFile(r.File())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read notes: %w", err)
	}

	notes, err := UnmarshalNotes(data)
	if err != nil {
		return nil, err
	}
	kept := core.Resolvable(notes, r.config.Assets)

	now := time.Now()
	r.mu.Lock()
	r.lastLoad = &now
	r.count = len(kept)
	r.mu.Unlock()

	r.config.Logger.Debug("notes read", "path", r.File(), "count", len(kept), "skipped", len(notes)-len(kept))
	return kept, nil
}

var _ core.NoteRepository = (*Repository)(nil)
