package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads a graph JSON document and parses it.
func Decode(r io.Reader) (*RoadGraph, error) {
	var raw Raw
	if err := json.NewDecoder(bufio.NewReader(r)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return Parse(raw), nil
}

// Encode writes g as a graph JSON document.
func Encode(w io.Writer, g *RoadGraph) error {
	if err := json.NewEncoder(w).Encode(g.Raw()); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// ReadFile loads a graph JSON file.
func ReadFile(path string) (*RoadGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile writes g to path. The document is written to a temporary file
// first and renamed into place so readers never see a partial graph.
func WriteFile(path string, g *RoadGraph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	w := bufio.NewWriterSize(f, 1<<20)
	if err := Encode(w, g); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
