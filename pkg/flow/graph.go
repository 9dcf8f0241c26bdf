package flow

import (
	"io"

	"github.com/flowpanel/flowpanel/pkg/graph"
	flowio "github.com/flowpanel/flowpanel/pkg/io"
)

// ToGraph exports the current state in node-link form. View content is
// not part of the export; only the plain node and edge records are.
func (f *Flow) ToGraph() graph.Graph {
	return graph.FromSpec(f.store.Nodes(), f.store.Edges())
}

// FromGraph replaces the current state with a deserialized graph. The
// replacement is atomic and broadcast as a single sync to every session.
func (f *Flow) FromGraph(g graph.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return f.handler.ReplaceGraph("", g.Nodes, g.Edges)
}

// ExportJSON writes the current state as indented node-link JSON.
func (f *Flow) ExportJSON(w io.Writer) error {
	return flowio.WriteJSON(f.ToGraph(), w)
}

// ImportJSON loads node-link JSON, replacing the current state.
func (f *Flow) ImportJSON(r io.Reader) error {
	g, err := flowio.ReadJSON(r)
	if err != nil {
		return err
	}
	return f.FromGraph(g)
}
