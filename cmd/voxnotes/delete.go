package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
	"github.com/aretw0/voxnotes/pkg/core"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a note",
	Long:  `Delete removes a note. The recording of an audio note is deleted with it.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		err := withApp(cmd, func(ctx context.Context, app *voxnotes.App) error {
			removed, err := app.Service.Delete(ctx, id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: %s", core.ErrNotFound, id)
			}
			return nil
		}, voxnotes.WithManualTranscription(true))
		if err != nil {
			fatal("Error deleting note", err)
		}
		fmt.Printf("Note deleted: %s\n", id)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
