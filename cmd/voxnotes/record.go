package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
	"github.com/aretw0/voxnotes/pkg/adapters/media"
	"github.com/aretw0/voxnotes/pkg/core"
)

var (
	recordFile         string
	recordDuration     time.Duration
	recordInputFormat  string
	recordInput        string
	recordNoTranscribe bool
)

var recordCmd = &cobra.Command{
	Use:   "record [category]",
	Short: "Record a voice note, or file an existing recording",
	Long: `Record captures the default microphone with ffmpeg until --duration elapses
or the command is interrupted, then files the recording as an audio note.
With --file an existing recording is filed instead. The new note is
transcribed before the command returns unless --no-transcribe is given.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		category := args[0]
		err := withApp(cmd, func(ctx context.Context, app *voxnotes.App) error {
			var (
				note  core.Note
				batch *core.Batch
				err   error
			)
			if recordFile != "" {
				path, absErr := filepath.Abs(recordFile)
				if absErr != nil {
					return absErr
				}
				note, batch, err = app.Service.CreateAudioNote(ctx, category, path)
			} else {
				note, batch, err = capture(ctx, app, category)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Note created: %s (%s)\n", note.ID, note.AudioPath)
			return waitBatch(ctx, batch)
		}, voxnotes.WithManualTranscription(recordNoTranscribe))
		if err != nil {
			fatal("Error recording note", err)
		}
	},
}

// capture records until the duration elapses or ctx is canceled.
func capture(ctx context.Context, app *voxnotes.App, category string) (core.Note, *core.Batch, error) {
	rec := app.Recorder(category, media.Config{
		InputFormat: recordInputFormat,
		Input:       recordInput,
		Logger:      slog.Default(),
	})
	if err := rec.Start(ctx, category); err != nil {
		return core.Note{}, nil, err
	}

	fmt.Println("Recording... press Ctrl+C to stop")
	var timeout <-chan time.Time
	if recordDuration > 0 {
		timer := time.NewTimer(recordDuration)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-timeout:
	case <-ctx.Done():
	}

	// The interrupt ends the capture, not the command.
	return rec.Stop(context.WithoutCancel(ctx))
}

// waitBatch blocks until batch is done and prints its outcome. An interrupt
// leaves the remaining notes untranscribed.
func waitBatch(ctx context.Context, batch *core.Batch) error {
	if batch == nil {
		return nil
	}
	result, err := batch.Wait(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Println("Transcription interrupted; run `voxnotes transcribe --all` later")
		return nil
	}
	if err != nil {
		return err
	}
	var errs []error
	for id, ferr := range result.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", id, ferr))
	}
	fmt.Printf("Transcribed %d of %d\n", len(result.Updated), result.Submitted)
	return errors.Join(errs...)
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVar(&recordFile, "file", "", "File an existing recording instead of capturing")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "Stop capturing after this long (default: until interrupted)")
	recordCmd.Flags().StringVar(&recordInputFormat, "input-format", "", "ffmpeg input format (default: platform microphone)")
	recordCmd.Flags().StringVar(&recordInput, "input", "", "ffmpeg input device (default: platform microphone)")
	recordCmd.Flags().BoolVar(&recordNoTranscribe, "no-transcribe", false, "Do not transcribe the new note")
}
