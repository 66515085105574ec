package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
	"github.com/aretw0/voxnotes/pkg/adapters/fs"
	"github.com/aretw0/voxnotes/pkg/core"
)

var (
	listJSON      bool
	listCompleted bool
	listAll       bool
	listCategory  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes, newest first",
	Long:  `List shows the active notes. Use --completed for done notes or --all for both.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := withApp(cmd, func(ctx context.Context, app *voxnotes.App) error {
			var notes []core.Note
			if !listCompleted || listAll {
				active, err := app.Service.ActiveNotes(ctx)
				if err != nil {
					return err
				}
				notes = append(notes, active...)
			}
			if listCompleted || listAll {
				completed, err := app.Service.CompletedNotes(ctx)
				if err != nil {
					return err
				}
				notes = append(notes, completed...)
			}

			var filtered []core.Note
			for _, n := range notes {
				if listCategory == "" || n.Category == listCategory {
					filtered = append(filtered, n)
				}
			}

			if listJSON {
				records := make([]fs.Record, 0, len(filtered))
				for _, n := range filtered {
					records = append(records, fs.EncodeRecord(n))
				}
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(records)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, n := range filtered {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.ID, checkbox(n.Done), n.Category, n.CreatedAt.Format("2006-01-02 15:04"), summary(n))
			}
			return w.Flush()
		}, voxnotes.WithManualTranscription(true))
		if err != nil {
			fatal("Error listing notes", err)
		}
	},
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func summary(n core.Note) string {
	if n.NeedsTranscription() {
		return fmt.Sprintf("(not transcribed) %s", n.AudioPath)
	}
	return n.Text
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listCompleted, "completed", false, "List done notes instead of active ones")
	listCmd.Flags().BoolVar(&listAll, "all", false, "List active and done notes")
	listCmd.Flags().StringVar(&listCategory, "category", "", "Only list notes of this category")
}
