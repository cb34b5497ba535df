package repertoire

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// On-disk layout: a versioned JSON arena. The format round-trips graphs of
// arbitrary depth and branching without losing visit counts.
const formatVersion = 1

var ErrCorrupt = errors.New("repertoire database is corrupt")

type fileFormat struct {
	Version int    `json:"version"`
	Nodes   []Node `json:"nodes"`
}

// DefaultPath is where the repertoire database lives unless configured
// otherwise.
func DefaultPath() string {
	return filepath.Join("resources", "repertoire", "repertoire.json")
}

// Save writes the graph to the given path, creating parent directories.
func (g *Graph) Save(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("repertoire path required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create repertoire dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create repertoire file %q: %w", path, err)
	}
	defer f.Close()

	payload := fileFormat{Version: formatVersion, Nodes: g.nodes}
	enc := json.NewEncoder(f)
	if err := enc.Encode(&payload); err != nil {
		return fmt.Errorf("encode repertoire %q: %w", path, err)
	}
	return nil
}

// Load reads a graph back from disk. Unreadable or inconsistent files are
// fatal startup errors for callers, so every structural problem is reported.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open repertoire file %q: %w", path, err)
	}
	defer f.Close()

	var payload fileFormat
	if err := json.NewDecoder(f).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode repertoire %q: %w", path, err)
	}
	if payload.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, payload.Version)
	}
	if len(payload.Nodes) == 0 {
		return nil, fmt.Errorf("%w: missing root node", ErrCorrupt)
	}
	for i := range payload.Nodes {
		for san, edge := range payload.Nodes[i].Edges {
			if edge.Child <= 0 || int(edge.Child) >= len(payload.Nodes) {
				return nil, fmt.Errorf("%w: node %d edge %q points outside arena", ErrCorrupt, i, san)
			}
			if edge.Count <= 0 {
				return nil, fmt.Errorf("%w: node %d edge %q has non-positive count", ErrCorrupt, i, san)
			}
		}
	}
	return &Graph{nodes: payload.Nodes}, nil
}
