package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of the service, scheduler and storage as JSON",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := withApp(cmd, func(ctx context.Context, app *voxnotes.App) error {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(app.Status())
		}, voxnotes.WithManualTranscription(true))
		if err != nil {
			fatal("Error reading status", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
