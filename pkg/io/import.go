package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/flowpanel/flowpanel/pkg/graph"
)

// ReadJSON decodes a node-link JSON document from r into a graph.
//
// ReadJSON returns an error if:
//   - The JSON is malformed or invalid
//   - A node is missing an id or has a duplicate id
//   - An edge references an unknown node id
//
// Errors are wrapped with context describing which node or edge caused
// the problem. The returned graph is independent of r and can be
// modified safely after ReadJSON returns. ReadJSON does not close r.
func ReadJSON(r io.Reader) (graph.Graph, error) {
	var g graph.Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return graph.Graph{}, fmt.Errorf("decode: %w", err)
	}
	if err := g.Validate(); err != nil {
		return graph.Graph{}, err
	}
	return g, nil
}

// ImportJSON reads a JSON file at path and returns the decoded graph.
//
// ImportJSON opens the file, decodes it using [ReadJSON], and closes the
// file. Errors wrap the underlying cause with the file path for context.
func ImportJSON(path string) (graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return graph.Graph{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
