package core

import (
	"context"
	"sync"
)

// Loop is the foreground execution context.
// Closures posted to it run one at a time, in order, on a single goroutine;
// the note store and category registry are only touched from there.
type Loop struct {
	tasks    chan func()
	quit     chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop whose task queue holds up to buffer pending closures.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		tasks: make(chan func(), buffer),
		quit:  make(chan struct{}),
	}
}

// Run executes posted closures until ctx is done or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return nil
		case <-l.quit:
			return nil
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Stop makes Run return. Closures still queued are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}

// Post enqueues fn without waiting for it to run.
// It must not be called from the loop goroutine when the queue may be full.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.quit:
		return ErrLoopStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.quit:
		return ErrLoopStopped
	}
}

// Call runs fn on the loop and waits for its result.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	if err := l.Post(func() { done <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		// fn may still have completed right before the loop stopped.
		select {
		case err := <-done:
			return err
		default:
			return ErrLoopStopped
		}
	}
}
