package core

import (
	"context"
	"fmt"
	"sync"
)

// AudioDevice captures and plays recordings.
type AudioDevice interface {
	// StartCapture begins recording and returns the path the audio is written to.
	StartCapture() (string, error)
	StopCapture() error
	Play(path string) error
	Stop() error
}

// Recorder is the capture collaborator: it drives an AudioDevice and files
// finished recordings as audio notes.
type Recorder struct {
	svc    *Service
	device AudioDevice

	mu        sync.Mutex
	recording bool
	category  string
	path      string
}

// NewRecorder creates a recorder for svc.
func NewRecorder(svc *Service, device AudioDevice) *Recorder {
	return &Recorder{svc: svc, device: device}
}

// Start begins a recording that will be filed under category.
func (r *Recorder) Start(ctx context.Context, category string) error {
	names, err := r.svc.Categories(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, n := range names {
		if n == category {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return ErrAlreadyRecording
	}
	path, err := r.device.StartCapture()
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	r.recording = true
	r.category = category
	r.path = path
	return nil
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Stop ends the capture and creates the audio note. When the device fails to
// stop, no note is created.
func (r *Recorder) Stop(ctx context.Context) (Note, *Batch, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return Note{}, nil, ErrNotRecording
	}
	category, path := r.category, r.path
	r.recording = false
	r.category, r.path = "", ""
	err := r.device.StopCapture()
	r.mu.Unlock()

	if err != nil {
		return Note{}, nil, fmt.Errorf("stop recording: %w", err)
	}
	return r.svc.CreateAudioNote(ctx, category, path)
}

// Play stops any current playback and plays the recording of note id.
func (r *Recorder) Play(ctx context.Context, id string) error {
	n, err := r.svc.Note(ctx, id)
	if err != nil {
		return err
	}
	if !n.IsAudio() {
		return fmt.Errorf("%w: %s", ErrNotAudio, id)
	}
	if err := r.device.Stop(); err != nil {
		return fmt.Errorf("stop playback: %w", err)
	}
	return r.device.Play(n.AudioPath)
}

// StopPlayback stops the current playback, if any.
func (r *Recorder) StopPlayback() error {
	return r.device.Stop()
}
