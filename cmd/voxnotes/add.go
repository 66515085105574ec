package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
)

var addCmd = &cobra.Command{
	Use:   "add [category] [text...]",
	Short: "File a text note under a category",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		category, text := args[0], strings.Join(args[1:], " ")
		err := withApp(cmd, func(ctx context.Context, app *voxnotes.App) error {
			note, err := app.Service.CreateTextNote(ctx, category, text)
			if err != nil {
				return err
			}
			fmt.Printf("Note created: %s\n", note.ID)
			return nil
		})
		if err != nil {
			fatal("Error adding note", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
