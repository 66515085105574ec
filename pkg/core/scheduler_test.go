package core_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/voxnotes/pkg/core"
)

type schedulerFixture struct {
	loop      *core.Loop
	store     *core.Store
	assets    *memAssets
	tr        *fakeTranscriber
	notifier  *recordingNotifier
	scheduler *core.Scheduler
}

func newSchedulerFixture(t *testing.T, pacing time.Duration, queueLimit int, notes ...core.Note) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		loop:     runLoop(t),
		store:    core.NewStore(),
		assets:   newMemAssets(),
		tr:       &fakeTranscriber{},
		notifier: &recordingNotifier{},
	}
	for _, n := range notes {
		require.NoError(t, f.store.Add(n))
		if n.IsAudio() {
			f.assets.files[n.AudioPath] = true
		}
	}
	f.scheduler = core.NewScheduler(core.SchedulerConfig{
		Transcriber: f.tr,
		Audio:       f.assets,
		Settings:    staticSettings{},
		Loop:        f.loop,
		Complete:    f.store.UpdateText,
		Notifier:    f.notifier,
		Pacing:      pacing,
		QueueLimit:  queueLimit,
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.scheduler.Start(ctx))
	t.Cleanup(func() {
		closeCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		_ = f.scheduler.Close(closeCtx)
		cancel()
	})
	return f
}

// note reads a note through the loop.
func (f *schedulerFixture) note(t *testing.T, id string) (core.Note, bool) {
	t.Helper()
	var n core.Note
	var ok bool
	require.NoError(t, f.loop.Call(context.Background(), func() error {
		n, ok = f.store.Get(id)
		return nil
	}))
	return n, ok
}

func waitBatch(t *testing.T, b *core.Batch) core.BatchResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := b.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestScheduler_SingleUpdatesNote(t *testing.T) {
	n := audioNote("audio_1", "/r/a.3gp", t0)
	f := newSchedulerFixture(t, -1, 0, n)

	b, err := f.scheduler.SubmitOne(n)
	require.NoError(t, err)

	res := waitBatch(t, b)
	assert.Equal(t, []string{"audio_1"}, res.Updated)
	assert.Empty(t, res.Failed)

	got, ok := f.note(t, "audio_1")
	require.True(t, ok)
	assert.Equal(t, "text of /r/a.3gp", got.Text)

	require.Eventually(t, func() bool {
		return len(f.notifier.ofKind(core.NotifyTranscriptionCompleted)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_SingleRejectsText(t *testing.T) {
	f := newSchedulerFixture(t, -1, 0)
	_, err := f.scheduler.SubmitOne(textNote("text_1", "a", t0))
	assert.ErrorIs(t, err, core.ErrNotAudio)
}

func TestScheduler_BatchContinuesAfterFailure(t *testing.T) {
	a := audioNote("audio_1", "/r/1.3gp", t0)
	b := audioNote("audio_2", "/r/2.3gp", t0.Add(time.Second))
	c := audioNote("audio_3", "/r/3.3gp", t0.Add(2*time.Second))
	f := newSchedulerFixture(t, -1, 0, a, b, c)
	f.tr.fn = func(ctx context.Context, audio string) (string, error) {
		if audio == "/r/2.3gp" {
			return "", &core.RecognitionServiceError{Status: 500, Body: "oops"}
		}
		return "ok " + audio, nil
	}

	batch, err := f.scheduler.SubmitBatch([]core.Note{c, b, a})
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Size())

	res := waitBatch(t, batch)
	assert.Equal(t, []string{"audio_3", "audio_1"}, res.Updated)
	require.Contains(t, res.Failed, "audio_2")

	var svcErr *core.RecognitionServiceError
	assert.True(t, errors.As(res.Failed["audio_2"], &svcErr))

	got, _ := f.note(t, "audio_2")
	assert.Empty(t, got.Text)

	require.Eventually(t, func() bool {
		done := f.notifier.ofKind(core.NotifyBatchCompleted)
		return len(done) == 1 && done[0].Count == 2
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, f.notifier.ofKind(core.NotifyTranscriptionFailed), 1)
	assert.Equal(t, 3, f.notifier.ofKind(core.NotifyBatchStarted)[0].Count)
}

func TestScheduler_BatchSkipsIneligible(t *testing.T) {
	done := audioNote("audio_1", "/r/1.3gp", t0)
	done.Done = true
	transcribed := audioNote("audio_2", "/r/2.3gp", t0)
	transcribed.Text = "already"
	f := newSchedulerFixture(t, -1, 0, done, transcribed)

	_, err := f.scheduler.SubmitBatch([]core.Note{done, transcribed, textNote("text_1", "a", t0)})
	assert.ErrorIs(t, err, core.ErrNothingToTranscribe)
}

func TestScheduler_BatchPacing(t *testing.T) {
	const pacing = 30 * time.Millisecond
	a := audioNote("audio_1", "/r/1.3gp", t0)
	b := audioNote("audio_2", "/r/2.3gp", t0)
	c := audioNote("audio_3", "/r/3.3gp", t0)
	f := newSchedulerFixture(t, pacing, 0, a, b, c)

	batch, err := f.scheduler.SubmitBatch([]core.Note{a, b, c})
	require.NoError(t, err)
	waitBatch(t, batch)

	calls := f.tr.callTimes()
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), pacing)
	}
}

func TestScheduler_DiscardsResultForDeletedNote(t *testing.T) {
	n := audioNote("audio_1", "/r/a.3gp", t0)
	f := newSchedulerFixture(t, -1, 0, n)

	started := make(chan struct{})
	release := make(chan struct{})
	f.tr.fn = func(ctx context.Context, audio string) (string, error) {
		close(started)
		<-release
		return "late", nil
	}

	b, err := f.scheduler.SubmitOne(n)
	require.NoError(t, err)
	<-started

	require.NoError(t, f.loop.Call(context.Background(), func() error {
		f.store.Remove("audio_1")
		return nil
	}))
	close(release)

	res := waitBatch(t, b)
	assert.Empty(t, res.Updated)
	assert.Empty(t, res.Failed)

	_, ok := f.note(t, "audio_1")
	assert.False(t, ok)
	assert.Equal(t, 1, f.scheduler.State().(core.SchedulerState).Stats.Discarded)
}

func TestScheduler_ParseFailureStoresPlaceholder(t *testing.T) {
	n := audioNote("audio_1", "/r/a.3gp", t0)
	f := newSchedulerFixture(t, -1, 0, n)
	f.tr.fn = func(ctx context.Context, audio string) (string, error) {
		return "", fmt.Errorf("%w: missing results", core.ErrTranscriptionParse)
	}

	b, err := f.scheduler.SubmitOne(n)
	require.NoError(t, err)
	waitBatch(t, b)

	got, _ := f.note(t, "audio_1")
	assert.Equal(t, core.ParseFailedText, got.Text)
}

func TestScheduler_MissingAudioFails(t *testing.T) {
	n := audioNote("audio_1", "/r/a.3gp", t0)
	f := newSchedulerFixture(t, -1, 0)
	require.NoError(t, f.loop.Call(context.Background(), func() error { return f.store.Add(n) }))

	b, err := f.scheduler.SubmitOne(n)
	require.NoError(t, err)

	res := waitBatch(t, b)
	assert.Contains(t, res.Failed, "audio_1")
	assert.Empty(t, f.tr.callTimes())
}

func TestScheduler_QueueLimit(t *testing.T) {
	a := audioNote("audio_1", "/r/1.3gp", t0)
	b := audioNote("audio_2", "/r/2.3gp", t0)
	c := audioNote("audio_3", "/r/3.3gp", t0)
	f := newSchedulerFixture(t, -1, 1, a, b, c)

	started := make(chan struct{}, 3)
	release := make(chan struct{})
	f.tr.fn = func(ctx context.Context, audio string) (string, error) {
		started <- struct{}{}
		<-release
		return "ok", nil
	}
	defer close(release)

	_, err := f.scheduler.SubmitOne(a)
	require.NoError(t, err)
	<-started

	_, err = f.scheduler.SubmitOne(b)
	require.NoError(t, err)
	assert.Equal(t, 1, f.scheduler.Pending())

	_, err = f.scheduler.SubmitOne(c)
	assert.ErrorIs(t, err, core.ErrQueueFull)
}

func TestScheduler_CloseDropsQueued(t *testing.T) {
	a := audioNote("audio_1", "/r/1.3gp", t0)
	b := audioNote("audio_2", "/r/2.3gp", t0)
	f := newSchedulerFixture(t, -1, 0, a, b)

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	f.tr.fn = func(ctx context.Context, audio string) (string, error) {
		started <- struct{}{}
		<-release
		return "ok", nil
	}

	first, err := f.scheduler.SubmitOne(a)
	require.NoError(t, err)
	<-started
	second, err := f.scheduler.SubmitOne(b)
	require.NoError(t, err)

	closed := make(chan error, 1)
	go func() { closed <- f.scheduler.Close(context.Background()) }()

	res := waitBatch(t, second)
	assert.ErrorIs(t, res.Failed["audio_2"], core.ErrSchedulerClosed)

	close(release)
	assert.Equal(t, []string{"audio_1"}, waitBatch(t, first).Updated)
	require.NoError(t, <-closed)

	_, err = f.scheduler.SubmitOne(a)
	assert.ErrorIs(t, err, core.ErrSchedulerClosed)
}

func TestScheduler_OneCallAtATimeInSubmissionOrder(t *testing.T) {
	a := audioNote("audio_1", "/r/1.3gp", t0)
	b := audioNote("audio_2", "/r/2.3gp", t0)
	c := audioNote("audio_3", "/r/3.3gp", t0)
	f := newSchedulerFixture(t, 5*time.Millisecond, 0, a, b, c)

	var (
		mu        sync.Mutex
		order     []string
		active    atomic.Int32
		maxActive atomic.Int32
	)
	release := make(chan struct{})
	f.tr.fn = func(ctx context.Context, audio string) (string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		mu.Lock()
		order = append(order, audio)
		mu.Unlock()
		<-release
		return "text of " + audio, nil
	}

	batch, err := f.scheduler.SubmitBatch([]core.Note{a, b})
	require.NoError(t, err)
	// Submitted while the batch is running: it queues behind the batch items.
	single, err := f.scheduler.SubmitOne(c)
	require.NoError(t, err)
	close(release)

	assert.ElementsMatch(t, []string{"audio_1", "audio_2"}, waitBatch(t, batch).Updated)
	assert.Equal(t, []string{"audio_3"}, waitBatch(t, single).Updated)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/r/1.3gp", "/r/2.3gp", "/r/3.3gp"}, order)
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestScheduler_CloseDuringPacingSkipsCall(t *testing.T) {
	a := audioNote("audio_1", "/r/1.3gp", t0)
	b := audioNote("audio_2", "/r/2.3gp", t0)
	f := newSchedulerFixture(t, time.Hour, 0, a, b)

	batch, err := f.scheduler.SubmitBatch([]core.Note{a, b})
	require.NoError(t, err)

	// The second item is off the queue and waiting out the pacing delay.
	require.Eventually(t, func() bool {
		return len(f.tr.callTimes()) == 1 && f.scheduler.Pending() == 0
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.scheduler.Close(ctx))

	res := waitBatch(t, batch)
	assert.Equal(t, []string{"audio_1"}, res.Updated)
	assert.ErrorIs(t, res.Failed["audio_2"], core.ErrSchedulerClosed)
	assert.Len(t, f.tr.callTimes(), 1)
}
