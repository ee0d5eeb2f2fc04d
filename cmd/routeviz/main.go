// Command routeviz builds road graphs from OpenStreetMap extracts, serves
// them to the search visualizer and runs searches from the terminal.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "routeviz",
		Short:         "Road network search visualizer",
		Long:          `routeviz turns OpenStreetMap extracts into road graphs, serves them with snap, search and trace playback endpoints, and runs BFS, DFS and A* searches from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newBuildCmd(), newServeCmd(), newSearchCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("routeviz failed", "error", err)
		os.Exit(1)
	}
}
