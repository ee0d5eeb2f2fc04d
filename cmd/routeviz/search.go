package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"route_visualizer/pkg/graph"
	"route_visualizer/pkg/playback"
	"route_visualizer/pkg/routing"
)

type searchOptions struct {
	graphPath     string
	from          string
	to            string
	algorithm     string
	play          bool
	frameInterval time.Duration
	edgesPerTick  int
	batchSize     int
}

func newSearchCmd() *cobra.Command {
	var o searchOptions
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Snap two points onto a graph and search between them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.graphPath, "graph", "graph.json", "graph JSON file")
	f.StringVar(&o.from, "from", "", "start point as lat,lng")
	f.StringVar(&o.to, "to", "", "end point as lat,lng")
	f.StringVar(&o.algorithm, "algorithm", string(routing.AStar), "bfs, dfs or astar")
	f.BoolVar(&o.play, "play", false, "replay the trace through the playback scheduler")
	f.DurationVar(&o.frameInterval, "frame-interval", 16*time.Millisecond, "playback tick interval")
	f.IntVar(&o.edgesPerTick, "edges-per-tick", playback.DefaultEdgesPerTick, "edges added to a playback batch per tick")
	f.IntVar(&o.batchSize, "batch-size", playback.DefaultBatchSize, "edges per playback batch")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func runSearch(ctx context.Context, out io.Writer, o searchOptions) error {
	from, err := parseLatLng(o.from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseLatLng(o.to)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	algo, err := routing.ParseAlgorithm(o.algorithm)
	if err != nil {
		return err
	}

	g, err := graph.ReadFile(o.graphPath)
	if err != nil {
		return err
	}
	slog.Info("graph loaded", "nodes", len(g.Nodes), "edges", len(g.Edges))

	start := time.Now()
	route, err := routing.NewEngine(g).Route(ctx, from, to, algo)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	res := route.Result
	if err := res.Validate(g, route.Start.Node.ID, route.Goal.Node.ID); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	fmt.Fprintf(out, "algorithm: %s\n", algo)
	fmt.Fprintf(out, "start:     %s (edge %s)\n", route.Start.Node.ID, route.Start.Edge.ID)
	fmt.Fprintf(out, "goal:      %s (edge %s)\n", route.Goal.Node.ID, route.Goal.Edge.ID)
	fmt.Fprintf(out, "found:     %t\n", res.Found)
	fmt.Fprintf(out, "steps:     %d\n", len(res.Steps))
	if res.Found {
		fmt.Fprintf(out, "path:      %d edges, %.1f m\n", len(res.Path), res.Cost(g))
	}
	fmt.Fprintf(out, "time:      %s\n", elapsed.Round(time.Microsecond))

	if !o.play {
		return nil
	}
	return replay(ctx, out, res, g, o)
}

// logSink prints playback deliveries.
type logSink struct {
	out     io.Writer
	batches int
	edges   int
}

func (s *logSink) Explore(batch []playback.TracedEdge) {
	s.batches++
	s.edges += len(batch)
	fmt.Fprintf(s.out, "explore batch %d: %d edges (%d total)\n", s.batches, len(batch), s.edges)
}

func (s *logSink) Path(edges []playback.TracedEdge) {
	fmt.Fprintf(s.out, "path: %d edges\n", len(edges))
}

// replay runs the trace through a scheduler on a frame loop until the
// playback completes or ctx is done.
func replay(ctx context.Context, out io.Writer, res *routing.Result, g *graph.RoadGraph, o searchOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := playback.NewLoop()
	sched := playback.NewScheduler(loop,
		playback.WithEdgesPerTick(o.edgesPerTick),
		playback.WithBatchSize(o.batchSize),
	)
	sched.Play(res, g, &logSink{out: out}, func() {
		fmt.Fprintf(out, "playback complete after %d ticks\n", loop.Ticks())
		cancel()
	})

	err := loop.Run(ctx, o.frameInterval, nil)
	if sched.Active() {
		sched.Stop()
		return err
	}
	return nil
}
