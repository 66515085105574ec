package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
)

var doneUndo bool

var doneCmd = &cobra.Command{
	Use:   "done [id...]",
	Short: "Mark notes as done",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := withApp(cmd, func(ctx context.Context, app *voxnotes.App) error {
			for _, id := range args {
				if err := app.Service.SetDone(ctx, id, !doneUndo); err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				fmt.Printf("%s %s\n", checkbox(!doneUndo), id)
			}
			return nil
		}, voxnotes.WithManualTranscription(true))
		if err != nil {
			fatal("Error updating note", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(doneCmd)
	doneCmd.Flags().BoolVar(&doneUndo, "undo", false, "Mark the notes as active again")
}
