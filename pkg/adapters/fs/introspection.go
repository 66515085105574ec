package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path      string     `json:"path"`
	File      string     `json:"file"`
	SystemDir string     `json:"system_dir"`
	History   bool       `json:"history"`
	Notes     int        `json:"notes"`
	LastSave  *time.Time `json:"last_save,omitempty"`
	LastLoad  *time.Time `json:"last_load,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Path:      r.Path,
		File:      r.File(),
		SystemDir: r.config.SystemDir,
		History:   r.config.History,
		Notes:     r.count,
		LastSave:  r.lastSave,
		LastLoad:  r.lastLoad,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "fs-repository"
}

// PrefsState exposes the preferences store.
type PrefsState struct {
	Path          string `json:"path"`
	WatcherActive bool   `json:"watcher_active"`
}

// State implements introspection.Introspectable.
func (p *PrefsStore) State() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PrefsState{Path: p.path, WatcherActive: p.watching}
}

// ComponentType implements introspection.Component.
func (p *PrefsStore) ComponentType() string {
	return "prefs"
}

func (p *PrefsStore) setWatcherActive(active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watching = active
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)
var _ introspection.Introspectable = (*PrefsStore)(nil)
var _ introspection.Component = (*PrefsStore)(nil)
