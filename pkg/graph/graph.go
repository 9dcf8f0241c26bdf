// Package graph provides the node-link serialization format for flow
// graphs.
//
// This package defines the canonical wire format for persisted graphs,
// used for JSON files, API responses, and cross-tool interoperability.
// The format is human-readable and designed for round-trip fidelity:
// export → re-import produces an equivalent graph.
//
//	{
//	  "nodes": [{"id": "a", "type": "panel", "position": {"x": 0, "y": 0}}],
//	  "edges": [{"id": "a->b-1f2e3d4c", "source": "a", "target": "b"}]
//	}
//
// Embedded view content never appears in the serialized form; only the
// plain node and edge mappings are written.
package graph

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/flowpanel/flowpanel/pkg/spec"
)

// Graph is the canonical serialization format for a flow graph.
type Graph struct {
	Nodes []spec.Node
	Edges []spec.Edge
}

type wireGraph struct {
	Nodes []map[string]any `json:"nodes"`
	Edges []map[string]any `json:"edges"`
}

// FromSpec builds a Graph from node and edge lists. Nodes are sorted by
// id for deterministic output; edges keep their insertion order.
func FromSpec(nodes []spec.Node, edges []spec.Edge) Graph {
	g := Graph{
		Nodes: make([]spec.Node, len(nodes)),
		Edges: make([]spec.Edge, len(edges)),
	}
	for i, n := range nodes {
		g.Nodes[i] = n.Clone()
	}
	for i, e := range edges {
		g.Edges[i] = e.Clone()
	}
	slices.SortFunc(g.Nodes, func(a, b spec.Node) int {
		return strings.Compare(a.ID, b.ID)
	})
	return g
}

// MarshalJSON encodes the graph in node-link form.
func (g Graph) MarshalJSON() ([]byte, error) {
	out := wireGraph{
		Nodes: make([]map[string]any, len(g.Nodes)),
		Edges: make([]map[string]any, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		out.Nodes[i] = n.ToMap()
	}
	for i, e := range g.Edges {
		out.Edges[i] = e.ToMap()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a node-link document, validating each element.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in wireGraph
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	nodes := make([]spec.Node, 0, len(in.Nodes))
	for _, m := range in.Nodes {
		n, err := spec.NodeFromMap(m)
		if err != nil {
			return fmt.Errorf("node %v: %w", m["id"], err)
		}
		nodes = append(nodes, n)
	}
	edges := make([]spec.Edge, 0, len(in.Edges))
	for _, m := range in.Edges {
		e, err := spec.EdgeFromMap(m)
		if err != nil {
			return fmt.Errorf("edge %v: %w", m["id"], err)
		}
		edges = append(edges, e)
	}
	g.Nodes = nodes
	g.Edges = edges
	return nil
}

// Marshal serializes the graph to JSON bytes.
func Marshal(g Graph) ([]byte, error) {
	return json.Marshal(g)
}

// Unmarshal deserializes JSON bytes to a Graph.
func Unmarshal(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// Node returns the node with the given id.
func (g Graph) Node(id string) (spec.Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return spec.Node{}, false
}

// Validate checks structural integrity: unique node ids and edges whose
// endpoints reference known nodes.
func (g Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if err := n.Validate(); err != nil {
			return err
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	}
	for _, e := range g.Edges {
		if err := e.Validate(); err != nil {
			return err
		}
		if !seen[e.Source] {
			return fmt.Errorf("edge %s: unknown source %q", e.ID, e.Source)
		}
		if !seen[e.Target] {
			return fmt.Errorf("edge %s: unknown target %q", e.ID, e.Target)
		}
	}
	return nil
}
