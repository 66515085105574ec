package core

import (
	"context"
	"time"

	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	Running         bool           `json:"running"`
	Notes           int            `json:"notes"`
	Active          int            `json:"active"`
	Completed       int            `json:"completed"`
	Categories      []string       `json:"categories"`
	Subscribers     int            `json:"subscribers"`
	EventBufferSize int            `json:"event_buffer_size"`
	RepositoryType  string         `json:"repository_type"`
	Scheduler       SchedulerState `json:"scheduler"`
}

// State implements introspection.Introspectable.
// Store counters are read on the loop; they stay zero when it is not running.
func (s *Service) State() any {
	s.mu.RLock()
	state := ServiceState{
		Running:         s.started,
		Subscribers:     len(s.subscribers),
		EventBufferSize: s.cfg.EventBuffer,
		RepositoryType:  componentType(s.cfg.Notes),
	}
	s.mu.RUnlock()

	if state.Running {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.loop.Call(ctx, func() error {
			state.Notes = s.store.Len()
			for range s.store.Active() {
				state.Active++
			}
			state.Completed = state.Notes - state.Active
			state.Categories = s.categories.List()
			return nil
		})
	}
	state.Scheduler = s.scheduler.State().(SchedulerState)
	return state
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

// SchedulerState returns the state of the transcription queue without
// touching the loop.
func (s *Service) SchedulerState() SchedulerState {
	return s.scheduler.State().(SchedulerState)
}

// SchedulerState exposes the transcription queue.
type SchedulerState struct {
	Pending  int            `json:"pending"`
	InFlight string         `json:"in_flight,omitempty"`
	Closed   bool           `json:"closed"`
	Pacing   time.Duration  `json:"pacing"`
	Stats    SchedulerStats `json:"stats"`
}

// State implements introspection.Introspectable.
func (s *Scheduler) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerState{
		Pending:  len(s.queue),
		InFlight: s.inFlight,
		Closed:   s.closed,
		Pacing:   s.cfg.Pacing,
		Stats:    s.stats,
	}
}

// ComponentType implements introspection.Component.
func (s *Scheduler) ComponentType() string {
	return "scheduler"
}

func componentType(v any) string {
	if v == nil {
		return "unknown"
	}
	if comp, ok := v.(introspection.Component); ok {
		return comp.ComponentType()
	}
	return "repository"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
var _ introspection.Introspectable = (*Scheduler)(nil)
var _ introspection.Component = (*Scheduler)(nil)
