// Package catalog describes the cities the server can show and loads their
// road graphs.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"route_visualizer/pkg/geo"
	"route_visualizer/pkg/graph"
)

var (
	ErrUnknownCity   = errors.New("unknown city")
	ErrDuplicateCity = errors.New("duplicate city id")
	ErrInvalidCity   = errors.New("invalid city")
)

// Bounds is the area a city's map may be panned over.
type Bounds struct {
	South float64 `yaml:"south" json:"south"`
	West  float64 `yaml:"west" json:"west"`
	North float64 `yaml:"north" json:"north"`
	East  float64 `yaml:"east" json:"east"`
}

// Contains reports whether p lies within b.
func (b Bounds) Contains(p geo.LatLng) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// City is one entry of the catalog.
type City struct {
	ID        string     `yaml:"id" json:"id"`
	Name      string     `yaml:"name" json:"name"`
	Center    geo.LatLng `yaml:"center" json:"center"`
	Zoom      float64    `yaml:"zoom" json:"zoom"`
	Bounds    Bounds     `yaml:"bounds" json:"bounds"`
	MinZoom   int        `yaml:"min_zoom" json:"minZoom"`
	MaxZoom   int        `yaml:"max_zoom" json:"maxZoom"`
	GraphFile string     `yaml:"graph_file" json:"-"`
	TilesFile string     `yaml:"tiles_file" json:"-"`
}

// GraphPath returns the city's graph file under dir.
func (c City) GraphPath(dir string) string { return filepath.Join(dir, c.GraphFile) }

// TilesPath returns the city's tile archive under dir.
func (c City) TilesPath(dir string) string { return filepath.Join(dir, c.TilesFile) }

// Catalog is an ordered list of cities.
type Catalog struct {
	Cities []City `yaml:"cities"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{Cities: []City{
		{
			ID:      "vancouver",
			Name:    "Vancouver",
			Center:  geo.LatLng{Lat: 49.19, Lng: -122.89},
			Zoom:    11,
			Bounds:  Bounds{South: 49.0, West: -123.28, North: 49.38, East: -122.5},
			MinZoom: 10,
			MaxZoom: 20,
		},
		{
			ID:      "toronto",
			Name:    "Toronto",
			Center:  geo.LatLng{Lat: 43.65, Lng: -79.38},
			Zoom:    11,
			Bounds:  Bounds{South: 43.50, West: -79.75, North: 43.90, East: -79.00},
			MinZoom: 11,
			MaxZoom: 20,
		},
	}}
	c.fillDefaults()
	return c
}

// Load reads a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog, fills default file names and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) fillDefaults() {
	for i := range c.Cities {
		city := &c.Cities[i]
		if city.Name == "" {
			city.Name = city.ID
		}
		if city.GraphFile == "" {
			city.GraphFile = city.ID + "-graph.json"
		}
		if city.TilesFile == "" {
			city.TilesFile = city.ID + ".pmtiles"
		}
	}
}

// Validate checks that every city has a unique id and sane bounds.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Cities))
	for i, city := range c.Cities {
		if city.ID == "" {
			return fmt.Errorf("%w: entry %d has no id", ErrInvalidCity, i)
		}
		if seen[city.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateCity, city.ID)
		}
		seen[city.ID] = true
		if city.Bounds.South > city.Bounds.North || city.Bounds.West > city.Bounds.East {
			return fmt.Errorf("%w: %q has inverted bounds", ErrInvalidCity, city.ID)
		}
		if city.MinZoom > city.MaxZoom {
			return fmt.Errorf("%w: %q has min_zoom above max_zoom", ErrInvalidCity, city.ID)
		}
	}
	return nil
}

// Lookup finds a city by id.
func (c *Catalog) Lookup(id string) (City, error) {
	for _, city := range c.Cities {
		if city.ID == id {
			return city, nil
		}
	}
	return City{}, fmt.Errorf("%w: %q", ErrUnknownCity, id)
}

// LoadGraphs reads the graph of every city from dir in parallel. Cities
// whose graph file does not exist are skipped; any other failure aborts
// the load.
func LoadGraphs(ctx context.Context, c *Catalog, dir string) (map[string]*graph.RoadGraph, error) {
	var mu sync.Mutex
	graphs := make(map[string]*graph.RoadGraph, len(c.Cities))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, city := range c.Cities {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			path := city.GraphPath(dir)
			rg, err := graph.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				slog.Warn("graph file missing", "city", city.ID, "path", path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("city %s: %w", city.ID, err)
			}

			stats := rg.Stats()
			slog.Info("graph loaded", "city", city.ID, "nodes", stats.NumNodes, "edges", stats.NumEdges)

			mu.Lock()
			graphs[city.ID] = rg
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return graphs, nil
}
