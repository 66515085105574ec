package main

import (
	"fmt"
	"os"

	"github.com/aretw0/voxnotes/pkg/core"
)

// cliNotifier prints notifications to stderr, one line each.
type cliNotifier struct{}

func (cliNotifier) Notify(n core.Notification) {
	var msg string
	switch n.Kind {
	case core.NotifyTranscriptionCompleted:
		msg = fmt.Sprintf("transcribed %s", n.NoteID)
	case core.NotifyTranscriptionFailed:
		msg = fmt.Sprintf("transcription of %s failed: %v", n.NoteID, n.Err)
	case core.NotifyBatchStarted:
		msg = fmt.Sprintf("transcribing %d recordings", n.Count)
	case core.NotifyBatchCompleted:
		msg = fmt.Sprintf("transcribed %d recordings", n.Count)
	case core.NotifySaveFailed:
		msg = fmt.Sprintf("failed to save notes: %v", n.Err)
	case core.NotifyLoadFailed:
		msg = fmt.Sprintf("failed to load notes, starting empty: %v", n.Err)
	default:
		msg = string(n.Kind)
	}
	fmt.Fprintln(os.Stderr, msg)
}
