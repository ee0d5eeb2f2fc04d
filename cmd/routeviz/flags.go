package main

import (
	"fmt"
	"strconv"
	"strings"

	"route_visualizer/pkg/geo"
	osmparser "route_visualizer/pkg/osm"
)

// parseFloats splits a comma-separated list of exactly n numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseLatLng parses "lat,lng".
func parseLatLng(s string) (geo.LatLng, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return geo.LatLng{}, err
	}
	if v[0] < -90 || v[0] > 90 || v[1] < -180 || v[1] > 180 {
		return geo.LatLng{}, fmt.Errorf("coordinates out of range: %q", s)
	}
	return geo.LatLng{Lat: v[0], Lng: v[1]}, nil
}

// parseBBox parses "minLat,minLng,maxLat,maxLng". An empty string is the
// zero box, which disables filtering.
func parseBBox(s string) (osmparser.BBox, error) {
	if s == "" {
		return osmparser.BBox{}, nil
	}
	v, err := parseFloats(s, 4)
	if err != nil {
		return osmparser.BBox{}, err
	}
	b := osmparser.BBox{MinLat: v[0], MinLng: v[1], MaxLat: v[2], MaxLng: v[3]}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return osmparser.BBox{}, fmt.Errorf("inverted bounding box: %q", s)
	}
	return b, nil
}
