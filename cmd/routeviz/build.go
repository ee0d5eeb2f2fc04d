package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"route_visualizer/pkg/graph"
	osmparser "route_visualizer/pkg/osm"
)

type buildOptions struct {
	input            string
	output           string
	bbox             string
	network          string
	largestComponent bool
}

func newBuildCmd() *cobra.Command {
	var o buildOptions
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a graph JSON file from an OSM PBF extract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "path to .osm.pbf file")
	f.StringVar(&o.output, "output", "graph.json", "output graph JSON path")
	f.StringVar(&o.bbox, "bbox", "", "bounding box filter: minLat,minLng,maxLat,maxLng")
	f.StringVar(&o.network, "network", "drive", "road network: drive or all")
	f.BoolVar(&o.largestComponent, "largest-component", false, "keep only the largest connected component")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runBuild(cmd *cobra.Command, o buildOptions) error {
	bbox, err := parseBBox(o.bbox)
	if err != nil {
		return fmt.Errorf("--bbox: %w", err)
	}
	network, err := osmparser.ParseNetwork(o.network)
	if err != nil {
		return fmt.Errorf("--network: %w", err)
	}
	if !bbox.IsZero() {
		slog.Info("using bounding box filter",
			"min_lat", bbox.MinLat, "max_lat", bbox.MaxLat, "min_lng", bbox.MinLng, "max_lng", bbox.MaxLng)
	}

	start := time.Now()

	f, err := os.Open(o.input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	parsed, err := osmparser.Parse(cmd.Context(), f, osmparser.ParseOptions{BBox: bbox, Network: network})
	if err != nil {
		return fmt.Errorf("parse OSM data: %w", err)
	}

	g := graph.Build(parsed)
	slog.Info("graph built", "nodes", len(g.Nodes), "edges", len(g.Edges))
	if len(g.Edges) == 0 {
		return errors.New("no routable edges in input")
	}

	if o.largestComponent {
		nodes := graph.LargestComponent(g)
		slog.Info("largest component", "nodes", len(nodes),
			"share", fmt.Sprintf("%.1f%%", float64(len(nodes))/float64(len(g.Nodes))*100))
		g = graph.FilterToComponent(g, nodes)
		slog.Info("filtered graph", "nodes", len(g.Nodes), "edges", len(g.Edges))
	}

	if err := graph.WriteFile(o.output, g); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}

	info, err := os.Stat(o.output)
	if err != nil {
		return err
	}
	slog.Info("done",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"output", o.output,
		"size_mb", fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)))
	return nil
}
