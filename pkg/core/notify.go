package core

import (
	"log/slog"
)

// NotificationKind classifies user-facing reports.
type NotificationKind string

const (
	NotifyTranscriptionCompleted NotificationKind = "transcription_completed"
	NotifyTranscriptionFailed    NotificationKind = "transcription_failed"
	NotifyBatchStarted           NotificationKind = "batch_started"
	NotifyBatchCompleted         NotificationKind = "batch_completed"
	NotifySaveFailed             NotificationKind = "save_failed"
	NotifyLoadFailed             NotificationKind = "load_failed"
)

// Notification is a message for the user-facing collaborator.
type Notification struct {
	Kind     NotificationKind
	NoteID   string
	Category string
	Count    int
	Err      error
}

// Notifier receives user-facing reports.
// Implementations must not call back into the Service synchronously.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier reports through a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"kind", n.Kind}
	if n.NoteID != "" {
		attrs = append(attrs, "note", n.NoteID)
	}
	if n.Category != "" {
		attrs = append(attrs, "category", n.Category)
	}

	switch n.Kind {
	case NotifyBatchStarted, NotifyBatchCompleted:
		logger.Info("transcription batch", append(attrs, "count", n.Count)...)
	case NotifyTranscriptionCompleted:
		logger.Info("transcription completed", attrs...)
	default:
		logger.Warn("operation failed", append(attrs, "error", n.Err)...)
	}
}
