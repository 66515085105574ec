package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
	"github.com/aretw0/voxnotes/pkg/core"
)

var (
	transcribeAll    bool
	transcribePacing time.Duration
	transcribeURL    string
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe [id]",
	Short: "Transcribe a recording, or every untranscribed one with --all",
	Args: func(cmd *cobra.Command, args []string) error {
		if transcribeAll && len(args) > 0 {
			return errors.New("either an id or --all, not both")
		}
		if !transcribeAll && len(args) != 1 {
			return errors.New("an id or --all is required")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		err := withApp(cmd, func(ctx context.Context, app *voxnotes.App) error {
			var (
				batch *core.Batch
				err   error
			)
			if transcribeAll {
				batch, err = app.Service.TranscribeAll(ctx)
			} else {
				batch, err = app.Service.Transcribe(ctx, args[0])
			}
			if err != nil {
				return err
			}
			return waitBatch(ctx, batch)
		},
			voxnotes.WithManualTranscription(true),
			voxnotes.WithPacing(transcribePacing),
			voxnotes.WithEndpoint(transcribeURL),
		)
		if err != nil {
			fatal("Error transcribing", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(transcribeCmd)
	transcribeCmd.Flags().BoolVar(&transcribeAll, "all", false, "Transcribe every recording without text")
	transcribeCmd.Flags().DurationVar(&transcribePacing, "pacing", 0, "Pause between two recognition calls (default 1s, negative disables)")
	transcribeCmd.Flags().StringVar(&transcribeURL, "endpoint", "", "Override the recognize endpoint")
}
