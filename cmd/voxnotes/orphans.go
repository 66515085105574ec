package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
)

var orphansDelete bool

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List recordings that no note refers to",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := withApp(cmd, func(ctx context.Context, app *voxnotes.App) error {
			orphans, err := app.Orphans(ctx, orphansDelete)
			if err != nil {
				return err
			}
			for _, path := range orphans {
				fmt.Println(path)
			}
			if orphansDelete {
				fmt.Printf("Deleted %d recordings\n", len(orphans))
			}
			return nil
		}, voxnotes.WithManualTranscription(true))
		if err != nil {
			fatal("Error scanning recordings", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(orphansCmd)
	orphansCmd.Flags().BoolVar(&orphansDelete, "delete", false, "Delete the listed recordings")
}
