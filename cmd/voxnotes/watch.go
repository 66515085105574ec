package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
	notesource "github.com/aretw0/voxnotes/pkg/adapters/lifecycle"
	"github.com/aretw0/voxnotes/pkg/adapters/metrics"
)

var (
	watchMetricsAddr string
	watchOnly        string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print note changes until interrupted",
	Long: `Watch keeps a session open and prints every change of the note store.
Edits of prefs.yaml by other programs reload the categories. With
--metrics-addr, Prometheus metrics are served on /metrics and the component
state on /status.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		types, err := notesource.ParseEventTypes(watchOnly)
		if err != nil {
			fatal("Invalid --only", err)
		}

		opts := []voxnotes.Option{voxnotes.WithPrefsWatch(true)}
		var collector *metrics.Collector
		if watchMetricsAddr != "" {
			collector = metrics.NewCollector(metrics.DefaultNamespace)
			opts = append(opts, voxnotes.WithMetrics(collector))
		}

		err = withApp(cmd, func(ctx context.Context, app *voxnotes.App) error {
			if collector != nil {
				lifecycle.Go(ctx, func(ctx context.Context) error {
					return collector.Serve(ctx, watchMetricsAddr, func() any { return app.Status() })
				}, lifecycle.WithErrorHandler(func(err error) {
					slog.Error("metrics server stopped", "error", err)
				}))
				slog.Info("serving metrics", "addr", watchMetricsAddr)
			}

			events, err := app.Service.Watch(ctx)
			if err != nil {
				return err
			}
			source := notesource.NewSource(events, types...)
			if err := source.Start(ctx); err != nil {
				return err
			}

			fmt.Println("Watching for changes... press Ctrl+C to stop")
			for e := range source.Events() {
				fmt.Printf("%s %s\n", time.Now().Format(time.TimeOnly), e)
			}
			return nil
		}, opts...)
		if err != nil {
			fatal("Error watching notes", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchOnly, "only", "", "Print only these event types, e.g. create,delete")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve /metrics and /status on this address, e.g. :9464")
}
