package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"route_visualizer/pkg/api"
	"route_visualizer/pkg/catalog"
	"route_visualizer/pkg/playback"
	"route_visualizer/pkg/routing"
)

type serveOptions struct {
	config        string
	dataDir       string
	port          int
	corsOrigin    string
	frameInterval time.Duration
	edgesPerTick  int
	batchSize     int
}

func newServeCmd() *cobra.Command {
	var o serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve city graphs, tiles, search and playback endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.config, "config", "", "city catalog YAML (built-in catalog when empty)")
	f.StringVar(&o.dataDir, "data", "data", "directory holding graph and tile files")
	f.IntVar(&o.port, "port", 3001, "HTTP port")
	f.StringVar(&o.corsOrigin, "cors-origin", "", "CORS allowed origin (empty = same-origin)")
	f.DurationVar(&o.frameInterval, "frame-interval", 16*time.Millisecond, "playback tick interval")
	f.IntVar(&o.edgesPerTick, "edges-per-tick", playback.DefaultEdgesPerTick, "edges added to a playback batch per tick")
	f.IntVar(&o.batchSize, "batch-size", playback.DefaultBatchSize, "edges per playback batch")
	return cmd
}

func runServe(ctx context.Context, o serveOptions) error {
	cat := catalog.Default()
	if o.config != "" {
		var err error
		if cat, err = catalog.Load(o.config); err != nil {
			return err
		}
	}

	start := time.Now()
	graphs, err := catalog.LoadGraphs(ctx, cat, o.dataDir)
	if err != nil {
		return fmt.Errorf("load graphs: %w", err)
	}

	routers := make(map[string]routing.Router, len(graphs))
	for id, g := range graphs {
		routers[id] = routing.NewEngine(g)
	}
	slog.Info("ready", "cities", len(routers), "elapsed", time.Since(start).Round(time.Millisecond))

	metrics := api.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	handlers := api.NewHandlers(cat, o.dataDir, routers, metrics,
		api.WithFrameInterval(o.frameInterval),
		api.WithAllowedOrigin(o.corsOrigin),
		api.WithPlaybackOptions(playback.WithEdgesPerTick(o.edgesPerTick), playback.WithBatchSize(o.batchSize)),
	)

	cfg := api.DefaultConfig(fmt.Sprintf(":%d", o.port))
	cfg.CORSOrigin = o.corsOrigin
	srv := api.NewServer(cfg, handlers)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return api.ListenAndServe(ctx, srv)
}
