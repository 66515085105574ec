// Package sqlite stores notes in a SQLite database.
//
// The table mirrors the JSON record, so rows written by older versions
// without a file_path decode with the same legacy rule as notes.json.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/introspection"
	_ "modernc.org/sqlite"

	"github.com/aretw0/voxnotes/pkg/adapters/fs"
	"github.com/aretw0/voxnotes/pkg/core"
)

// DefaultFile is the database file inside the data directory.
const DefaultFile = "notes.db"

const createTableSQL = `CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	category TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	content TEXT NOT NULL,
	file_path TEXT,
	done BOOLEAN NOT NULL DEFAULT 0,
	position INTEGER NOT NULL
);`

// Config holds the configuration for the SQLite repository.
type Config struct {
	// Path is the database file.
	Path   string
	Logger *slog.Logger
	Assets core.AssetChecker
}

// Repository implements core.NoteRepository on SQLite.
type Repository struct {
	config Config
	db     *sql.DB

	mu       sync.RWMutex
	count    int
	lastSave *time.Time
}

// Open opens (and creates) the database.
func Open(ctx context.Context, config Config) (*Repository, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps every statement on the same SQLite handle.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Repository{config: config, db: db}, nil
}

// Close releases the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save replaces the table contents with notes, in one transaction.
func (r *Repository) Save(ctx context.Context, notes []core.Note) error {
	kept := core.Resolvable(notes, r.config.Assets)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("failed to clear notes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO notes (id, type, category, timestamp, content, file_path, done, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, n := range kept {
		rec := fs.EncodeRecord(n)
		var filePath sql.NullString
		if rec.FilePath != nil {
			filePath = sql.NullString{String: *rec.FilePath, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Type, rec.Category, rec.Timestamp, *rec.Content, filePath, rec.Done, i); err != nil {
			return fmt.Errorf("failed to insert note %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notes: %w", err)
	}

	now := time.Now()
	r.mu.Lock()
	r.count = len(kept)
	r.lastSave = &now
	r.mu.Unlock()
	return nil
}

// Load reads every row in saved order.
func (r *Repository) Load(ctx context.Context) ([]core.Note, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, type, category, timestamp, content, file_path, done FROM notes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var records []fs.Record
	for rows.Next() {
		var rec fs.Record
		var content string
		var filePath sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Type, &rec.Category, &rec.Timestamp, &content, &filePath, &rec.Done); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedStore, err)
		}
		rec.Content = &content
		if filePath.Valid {
			rec.FilePath = &filePath.String
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	notes, err := fs.DecodeRecords(records)
	if err != nil {
		return nil, err
	}
	kept := core.Resolvable(notes, r.config.Assets)

	r.mu.Lock()
	r.count = len(kept)
	r.mu.Unlock()

	r.config.Logger.Debug("notes read", "path", r.config.Path, "count", len(kept), "skipped", len(notes)-len(kept))
	return kept, nil
}

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path     string     `json:"path"`
	Notes    int        `json:"notes"`
	LastSave *time.Time `json:"last_save,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RepositoryState{Path: r.config.Path, Notes: r.count, LastSave: r.lastSave}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "sqlite-repository"
}

var (
	_ core.NoteRepository          = (*Repository)(nil)
	_ introspection.Introspectable = (*Repository)(nil)
	_ introspection.Component      = (*Repository)(nil)
)
