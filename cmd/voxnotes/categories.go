package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
)

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"category", "cat"},
	Short:   "Manage the ordered list of categories",
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories with their positions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := withCategories(cmd, func(ctx context.Context, app *voxnotes.App) error {
			return printCategories(ctx, app)
		})
		if err != nil {
			fatal("Error listing categories", err)
		}
	},
}

var categoriesAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Append a category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := withCategories(cmd, func(ctx context.Context, app *voxnotes.App) error {
			if err := app.Service.AddCategory(ctx, args[0]); err != nil {
				return err
			}
			return printCategories(ctx, app)
		})
		if err != nil {
			fatal("Error adding category", err)
		}
	},
}

var categoriesRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a category; its notes keep their category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := withCategories(cmd, func(ctx context.Context, app *voxnotes.App) error {
			if err := app.Service.RemoveCategory(ctx, args[0]); err != nil {
				return err
			}
			return printCategories(ctx, app)
		})
		if err != nil {
			fatal("Error removing category", err)
		}
	},
}

var categoriesMoveCmd = &cobra.Command{
	Use:   "move [from] [to]",
	Short: "Move the category at position from to position to (1-based)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		from, err := strconv.Atoi(args[0])
		if err != nil {
			fatal("Invalid position", err)
		}
		to, err := strconv.Atoi(args[1])
		if err != nil {
			fatal("Invalid position", err)
		}
		err = withCategories(cmd, func(ctx context.Context, app *voxnotes.App) error {
			if err := app.Service.ReorderCategory(ctx, from-1, to-1); err != nil {
				return err
			}
			return printCategories(ctx, app)
		})
		if err != nil {
			fatal("Error moving category", err)
		}
	},
}

func withCategories(cmd *cobra.Command, fn func(context.Context, *voxnotes.App) error) error {
	return withApp(cmd, fn, voxnotes.WithManualTranscription(true))
}

func printCategories(ctx context.Context, app *voxnotes.App) error {
	names, err := app.Service.Categories(ctx)
	if err != nil {
		return err
	}
	for i, name := range names {
		fmt.Printf("%d. %s\n", i+1, name)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.AddCommand(categoriesListCmd, categoriesAddCmd, categoriesRemoveCmd, categoriesMoveCmd)
}
