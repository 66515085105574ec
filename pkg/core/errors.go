package core

import (
	"errors"
	"fmt"
)

// Store and registry errors.
var (
	ErrDuplicateID       = errors.New("duplicate note id")
	ErrNotFound          = errors.New("note not found")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrLastCategory      = errors.New("must have at least one category")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrEmptyCategory     = errors.New("category name cannot be empty")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrEmptyText         = errors.New("note text cannot be empty")
	ErrEmptyAudioPath    = errors.New("audio path cannot be empty")
	ErrNotAudio          = errors.New("note is not an audio note")
)

// Persistence errors.
var (
	ErrMalformedStore = errors.New("malformed note store")
)

// Scheduling errors.
var (
	ErrSchedulerClosed     = errors.New("transcription scheduler is closed")
	ErrQueueFull           = errors.New("transcription queue is full")
	ErrNothingToTranscribe = errors.New("no notes to transcribe")
	ErrLoopStopped         = errors.New("foreground loop is not running")
)

// Capture errors.
var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// ErrTranscriptionParse is returned when a recognizer response has an unexpected shape.
var ErrTranscriptionParse = errors.New("transcription parsing failed")

// AuthError reports a failed credential exchange with the recognizer.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RecognitionServiceError reports a non-2xx answer of the recognizer.
type RecognitionServiceError struct {
	Status int
	Body   string
}

func (e *RecognitionServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("recognition service returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("recognition service returned HTTP %d: %s", e.Status, e.Body)
}
