// Package voxnotes is the composition root of the voxnotes note-taking core.
//
// It connects the core (note store, category registry, foreground loop and
// transcription scheduler) with the infrastructure adapters: a JSON document
// or SQLite database for notes, prefs.yaml for categories and settings, the
// recordings directory, ffmpeg for capture and the Google Cloud
// Speech-to-Text REST API for transcription.
//
// Features:
//
//   - **Text and audio notes** filed under user-defined categories, with a
//     done flag and newest-first listings.
//   - **Background transcription**: new recordings are transcribed on a single
//     worker, one at a time, and the text is written back to the note.
//   - **Durable storage**: notes.json (optionally versioned with git) or notes.db.
//   - **Legacy documents**: records written before recordings kept their text
//     load unchanged.
//
// Usage:
//
//	app, err := voxnotes.Open(ctx, "./notes", voxnotes.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer app.Close(ctx)
//
//	note, err := app.Service.CreateTextNote(ctx, "ToDos", "call the plumber")
package voxnotes
