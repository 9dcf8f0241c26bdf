// Package io provides JSON import and export for flow graphs.
//
// Graphs are written in the node-link format defined by [graph.Graph]:
//
//	{
//	  "nodes": [{"id": "a", "type": "panel", "position": {"x": 0, "y": 0}}],
//	  "edges": [{"id": "a->b-1f2e3d4c", "source": "a", "target": "b"}]
//	}
//
// Import validates structure on the way in: every node needs an id,
// ids must be unique, and edge endpoints must reference known nodes.
// Export and re-import produce an equivalent graph, so files written by
// [ExportJSON] are a faithful persistence format.
package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/flowpanel/flowpanel/pkg/graph"
)

// WriteJSON encodes a graph as indented JSON and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(g graph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a graph to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(g graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}
