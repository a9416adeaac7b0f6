package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jward/clangdex"
	"github.com/spf13/cobra"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [source]",
	Short: "Re-index whenever the analyzer writes new emissions",
	Long: "Indexes once, then watches the emission folder and re-indexes after each burst of writes. " +
		"Run an external build with the variables from 'clangdex env' while this is running. " +
		"Each run prints one result; interrupt to stop.",
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	addTreeFlags(watchCmd)
	watchCmd.Flags().IntVar(&flagWorkers, "workers", 0, "indexer goroutines (default: config or CPU count)")
	watchCmd.Flags().StringVar(&flagExtensions, "extensions", "", "comma-separated extension filter (e.g. .c,.cpp,.h)")
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", clangdex.DefaultDebounce, "quiet period before re-indexing")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	var source string
	if len(args) == 1 {
		source = args[0]
	}
	engine, _, dbPath, err := openEngine(source)
	if err != nil {
		return outputError("watch", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = engine.Watch(ctx, clangdex.EnvironVars(os.Environ()), flagDebounce, func(stats *clangdex.IndexStats, err error) {
		if err != nil {
			slog.Warn("watch.run.failed", "err", err)
			return
		}
		if err := outputResult(CLIResult{Command: "watch", Results: indexStatsToCLI(engine, dbPath, stats)}); err != nil {
			slog.Warn("watch.output", "err", err)
		}
	})
	if err != nil {
		return outputError("watch", err)
	}
	return nil
}
