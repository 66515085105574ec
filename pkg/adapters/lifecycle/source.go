// Package lifecycle exposes note store changes as a lifecycle.Source.
package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/voxnotes/pkg/core"
)

// Source forwards store events, optionally restricted to some event types.
type Source struct {
	events    <-chan core.Event
	types     []core.EventType
	out       chan lifecycle.Event
	forwarded atomic.Int64
	skipped   atomic.Int64
}

var _ lifecycle.Source = (*Source)(nil)

// NewSource bridges events, typically the channel of Service.Watch. With no
// types every event is forwarded.
func NewSource(events <-chan core.Event, types ...core.EventType) *Source {
	return &Source{
		events: events,
		types:  types,
		out:    make(chan lifecycle.Event),
	}
}

// ParseEventTypes reads a comma separated list such as "create,delete".
func ParseEventTypes(list string) ([]core.EventType, error) {
	var types []core.EventType
	for _, raw := range strings.Split(list, ",") {
		name := strings.ToUpper(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		t := core.EventType(name)
		switch t {
		case core.EventCreate, core.EventModify, core.EventDelete, core.EventReload:
			types = append(types, t)
		default:
			return nil, fmt.Errorf("unknown event type %q", raw)
		}
	}
	return types, nil
}

func (s *Source) Events() <-chan lifecycle.Event {
	return s.out
}

// Start forwards until the input closes or ctx ends, then closes Events.
func (s *Source) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			var e core.Event
			var ok bool
			select {
			case <-ctx.Done():
				return nil
			case e, ok = <-s.events:
			}
			if !ok {
				return nil
			}
			if len(s.types) > 0 && !slices.Contains(s.types, e.Type) {
				s.skipped.Add(1)
				continue
			}
			select {
			case s.out <- e:
				s.forwarded.Add(1)
			case <-ctx.Done():
				return nil
			}
		}
	})
	return nil
}

// SourceState reports what the source has passed on so far.
type SourceState struct {
	Types     []core.EventType `json:"types,omitempty"`
	Forwarded int64            `json:"forwarded"`
	Skipped   int64            `json:"skipped"`
}

// State implements introspection.Introspectable.
func (s *Source) State() any {
	return SourceState{Types: s.types, Forwarded: s.forwarded.Load(), Skipped: s.skipped.Load()}
}

// ComponentType implements introspection.Component.
func (s *Source) ComponentType() string {
	return "event-source"
}
