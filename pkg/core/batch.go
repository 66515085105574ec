package core

import (
	"context"
	"maps"
	"sync"
)

// Batch tracks the outcome of one submission to the scheduler.
// A single-note submission is a batch of one that reports like a single job.
type Batch struct {
	single bool
	size   int

	mu        sync.Mutex
	remaining int
	updated   []string
	failed    map[string]error
	done      chan struct{}
}

// BatchResult summarizes a finished batch.
type BatchResult struct {
	Submitted int
	// Updated lists the notes whose text was written back, in processing order.
	Updated []string
	// Failed maps note ids to the error that left them untranscribed.
	Failed map[string]error
}

func newBatch(size int, single bool) *Batch {
	return &Batch{
		single:    single,
		size:      size,
		remaining: size,
		failed:    make(map[string]error),
		done:      make(chan struct{}),
	}
}

// Size returns the number of notes submitted.
func (b *Batch) Size() int {
	return b.size
}

// Done is closed once every note of the batch was processed or dropped.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the batch drains or ctx ends.
func (b *Batch) Wait(ctx context.Context) (BatchResult, error) {
	select {
	case <-b.done:
		return b.Result(), nil
	case <-ctx.Done():
		return b.Result(), ctx.Err()
	}
}

// Result returns the outcome collected so far.
func (b *Batch) Result() BatchResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BatchResult{
		Submitted: b.size,
		Updated:   append([]string(nil), b.updated...),
		Failed:    maps.Clone(b.failed),
	}
}

// finish records one processed note. It returns true for the call that drained the batch.
// A nil err with updated == false means the result was discarded (note deleted).
func (b *Batch) finish(id string, updated bool, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining == 0 {
		return false
	}
	switch {
	case err != nil:
		b.failed[id] = err
	case updated:
		b.updated = append(b.updated, id)
	}
	b.remaining--
	if b.remaining == 0 {
		close(b.done)
		return true
	}
	return false
}
