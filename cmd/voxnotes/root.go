package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
)

// closeTimeout bounds how long a command waits for the session to drain.
const closeTimeout = 10 * time.Second

var (
	verbose bool
	dataDir string
	adapter string
	history bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "voxnotes",
	Short: "Voice and text notes, filed by category and transcribed in the background",
	Long: `voxnotes keeps short notes, typed or recorded, in user-defined categories.
Recordings are transcribed with Google Cloud Speech-to-Text one at a time and
the text is written back to the note.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", "", "Data directory (default: nearest enclosing data directory, else the working directory)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "fs", "Note storage: fs or sqlite")
	rootCmd.PersistentFlags().BoolVar(&history, "history", false, "Commit notes.json to git after every save (fs only)")
}

// resolveDir returns --dir, or the enclosing data directory of the working directory.
func resolveDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := voxnotes.FindRoot(wd)
	if errors.Is(err, voxnotes.ErrRootNotFound) {
		return wd, nil
	}
	return root, err
}

// withApp opens a session, runs fn and closes the session again.
func withApp(cmd *cobra.Command, fn func(context.Context, *voxnotes.App) error, opts ...voxnotes.Option) error {
	dir, err := resolveDir()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	base := []voxnotes.Option{
		voxnotes.WithLogger(slog.Default()),
		voxnotes.WithAdapter(adapter),
		voxnotes.WithHistory(history),
		voxnotes.WithNotifier(cliNotifier{}),
	}
	// The session outlives an interrupt of fn so that it can still save.
	app, err := voxnotes.Open(context.WithoutCancel(ctx), dir, append(base, opts...)...)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dir, err)
	}

	runErr := fn(ctx, app)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := app.Close(closeCtx); err != nil {
		slog.Warn("failed to close session", "error", err)
	}
	return runErr
}
