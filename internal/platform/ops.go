package platform

import (
	"context"
	"fmt"

	"github.com/aretw0/introspection"

	"github.com/aretw0/voxnotes/pkg/adapters/media"
	"github.com/aretw0/voxnotes/pkg/core"
)

// Orphans lists recordings that no note refers to. With remove, they are deleted.
func (a *App) Orphans(ctx context.Context, remove bool) ([]string, error) {
	referenced, err := a.Service.ReferencedAudio(ctx)
	if err != nil {
		return nil, err
	}
	orphans, err := a.Assets.Orphans("", referenced)
	if err != nil {
		return nil, err
	}
	if !remove {
		return orphans, nil
	}
	for _, path := range orphans {
		if err := a.Assets.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return orphans, nil
}

// Recorder returns a capture session whose files are named after category.
func (a *App) Recorder(category string, cfg media.Config) *core.Recorder {
	cfg.Dir = a.Assets.Root
	cfg.Prefix = category
	return core.NewRecorder(a.Service, media.NewDevice(cfg))
}

// Status returns the state of every introspectable component, keyed by type.
func (a *App) Status() map[string]any {
	status := make(map[string]any)
	for _, c := range []any{a.Service, a.notes, a.Prefs, a.transcriber} {
		i, ok := c.(introspection.Introspectable)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%T", c)
		if comp, ok := c.(introspection.Component); ok {
			key = comp.ComponentType()
		}
		status[key] = i.State()
	}
	return status
}
