// Package flow composes the graph state store, view registry, editor
// resolution, and sync protocol into one engine facade.
//
// A Flow owns the canonical graph and keeps every attached canvas session
// consistent with it. Server-side mutations go through the Flow's methods;
// canvas-side mutations arrive through the protocol handler. Both paths
// funnel into the same store, so invariants (unique ids, cascade deletes,
// one event per mutation) hold regardless of who mutated.
//
// Rich view content attached to a node never travels over the wire.
// The Flow strips it into the view registry on insertion and serializes
// the node with a "view_idx" reference instead; the registry's object
// list is handed to the rendering boundary separately.
package flow

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/flowpanel/flowpanel/pkg/editors"
	"github.com/flowpanel/flowpanel/pkg/errors"
	"github.com/flowpanel/flowpanel/pkg/observability"
	"github.com/flowpanel/flowpanel/pkg/protocol"
	"github.com/flowpanel/flowpanel/pkg/spec"
	"github.com/flowpanel/flowpanel/pkg/store"
	"github.com/flowpanel/flowpanel/pkg/views"
)

// Options configures a Flow.
type Options struct {
	// Logger receives structured engine logs. Defaults to a discard
	// logger when nil.
	Logger *log.Logger

	// Debounce is the quiet period for coalescing continuous drag
	// updates into a terminal move.
	Debounce time.Duration

	// QueueSize bounds each session's outbound message queue.
	QueueSize int
}

// Flow is the engine facade.
type Flow struct {
	logger   *log.Logger
	store    *store.Store
	resolver *editors.Resolver
	editors  *editors.Manager
	handler  *protocol.Handler

	mu        sync.Mutex
	views     *views.Registry
	nodeTypes map[string]spec.NodeType
	edgeTypes map[string]spec.EdgeType
}

// New creates an empty Flow.
func New(opts Options) *Flow {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	f := &Flow{
		logger:    opts.Logger,
		store:     store.New(),
		resolver:  editors.NewResolver(),
		views:     views.NewRegistry(),
		nodeTypes: make(map[string]spec.NodeType),
		edgeTypes: make(map[string]spec.EdgeType),
	}
	f.editors = editors.NewManager(f.resolver)

	// Maintenance runs before the handler's listener so outbound
	// snapshots see refreshed view indices and editors.
	f.store.Subscribe(f.onEvent)
	f.handler = protocol.NewHandler(f.store, f, protocol.Options{
		Debounce:  opts.Debounce,
		QueueSize: opts.QueueSize,
	})
	return f
}

// Store exposes the underlying graph state store.
func (f *Flow) Store() *store.Store { return f.store }

// Handler exposes the sync protocol handler for transport wiring.
func (f *Flow) Handler() *protocol.Handler { return f.handler }

// Resolver exposes the editor resolver for registrations.
func (f *Flow) Resolver() *editors.Resolver { return f.resolver }

// On registers a callback for the named engine event, or "*" for all.
func (f *Flow) On(event string, cb protocol.EventCallback) {
	f.handler.On(event, cb)
}

// =============================================================================
// Mutations
// =============================================================================

// AddNode inserts a node given as a spec.Node, *spec.Node, or plain map.
// Embedded view content is stripped into the view registry before the
// node reaches the store, so it never serializes onto the wire.
func (f *Flow) AddNode(v any) (spec.Node, error) {
	// Map payloads have their view content split off before coercion;
	// spec values carry it in the View field.
	var view any
	if m, ok := v.(map[string]any); ok {
		v, view = views.Extract(m)
	}
	n, err := spec.CoerceNode(v)
	if err != nil {
		return spec.Node{}, err
	}
	if n.View != nil {
		view = n.View
		n.View = nil
	}
	f.applyTypeDefaults(&n)

	// Reject duplicates before touching the view registry so a rejected
	// insert cannot clobber the existing node's view content.
	if _, exists := f.store.Node(n.ID); exists {
		return spec.Node{}, errors.New(errors.ErrCodeDuplicateID, "node %q already exists", n.ID)
	}
	if view != nil {
		f.mu.Lock()
		f.views.Assign(n.ID, view)
		f.mu.Unlock()
	}

	if err := f.store.AddNode("", n); err != nil {
		if view != nil {
			f.mu.Lock()
			f.views.Release(n.ID)
			f.compactLocked()
			f.mu.Unlock()
		}
		f.logger.Warn("add node rejected", "id", n.ID, "err", err)
		return spec.Node{}, err
	}
	stored, _ := f.store.Node(n.ID)
	return stored, nil
}

// RemoveNode deletes a node and its incident edges. Removing an unknown
// id is a no-op.
func (f *Flow) RemoveNode(id string) {
	f.store.RemoveNode("", id)
}

// AddEdge inserts an edge given as a spec.Edge, *spec.Edge, or plain map,
// deriving an id when none is set. The stored edge is returned.
func (f *Flow) AddEdge(v any) (spec.Edge, error) {
	e, err := spec.CoerceEdge(v)
	if err != nil {
		return spec.Edge{}, err
	}
	stored, err := f.store.AddEdge("", e)
	if err != nil {
		f.logger.Warn("add edge rejected", "id", e.ID, "err", err)
		return spec.Edge{}, err
	}
	return stored, nil
}

// RemoveEdge deletes an edge. Removing an unknown id is a no-op.
func (f *Flow) RemoveEdge(id string) {
	f.store.RemoveEdge("", id)
}

// MoveNode replaces a node's position.
func (f *Flow) MoveNode(id string, pos spec.Position) error {
	return f.store.MoveNode("", id, pos)
}

// PatchNodeData shallow-merges a partial mapping into a node's data.
func (f *Flow) PatchNodeData(id string, patch map[string]any) error {
	return f.store.PatchNodeData("", id, patch)
}

// PatchEdgeData shallow-merges a partial mapping into an edge's data.
func (f *Flow) PatchEdgeData(id string, patch map[string]any) error {
	return f.store.PatchEdgeData("", id, patch)
}

// SetSelection replaces the selected element sets. Stale ids are
// filtered; the applied selection is returned.
func (f *Flow) SetSelection(nodeIDs, edgeIDs []string) (nodes, edges []string) {
	return f.store.SetSelection("", nodeIDs, edgeIDs)
}

// Selection returns the currently selected node and edge ids.
func (f *Flow) Selection() (nodes, edges []string) {
	return f.store.Selection()
}

// SetView attaches or replaces a node's embedded view content.
func (f *Flow) SetView(nodeID string, view any) error {
	if _, ok := f.store.Node(nodeID); !ok {
		return errors.New(errors.ErrCodeNotFound, "node %q does not exist", nodeID)
	}
	f.mu.Lock()
	f.views.Assign(nodeID, view)
	f.mu.Unlock()
	return nil
}

// =============================================================================
// Reads
// =============================================================================

// Nodes returns a snapshot copy of the node list.
func (f *Flow) Nodes() []spec.Node { return f.store.Nodes() }

// Edges returns a snapshot copy of the edge list.
func (f *Flow) Edges() []spec.Edge { return f.store.Edges() }

// Node returns a copy of the node with the given id.
func (f *Flow) Node(id string) (spec.Node, bool) { return f.store.Node(id) }

// Edge returns a copy of the edge with the given id.
func (f *Flow) Edge(id string) (spec.Edge, bool) { return f.store.Edge(id) }

// Views returns the embeddable view objects in index order. The slice
// positions match the "view_idx" references in the serialized nodes.
func (f *Flow) Views() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.views.Objects()
}

// ViewIndex returns the view arena index assigned to a node.
func (f *Flow) ViewIndex(nodeID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.views.Index(nodeID)
}

// Snapshot returns the outward-facing model: plain node and edge
// mappings with view indices substituted for embedded content.
// It implements the protocol handler's snapshot source.
func (f *Flow) Snapshot() (nodes, edges []map[string]any) {
	for _, n := range f.store.Nodes() {
		nodes = append(nodes, f.nodeMap(n))
	}
	for _, e := range f.store.Edges() {
		edges = append(edges, f.edgeMap(e))
	}
	return nodes, edges
}

// NodeSnapshot returns one node in outward-facing form.
func (f *Flow) NodeSnapshot(id string) (map[string]any, bool) {
	n, ok := f.store.Node(id)
	if !ok {
		return nil, false
	}
	return f.nodeMap(n), true
}

func (f *Flow) nodeMap(n spec.Node) map[string]any {
	m := n.ToMap()
	f.mu.Lock()
	if idx, ok := f.views.Index(n.ID); ok {
		m["view_idx"] = idx
	}
	f.mu.Unlock()
	return m
}

// edgeMap serializes an edge, filling empty handles with the endpoint
// node's first port. Resolution happens at read time so a later change to
// a node type's port list is picked up without rewriting stored edges.
func (f *Flow) edgeMap(e spec.Edge) map[string]any {
	m := e.ToMap()
	if e.SourceHandle == "" {
		if port := f.firstPort(e.Source, true); port != "" {
			m["sourceHandle"] = port
		}
	}
	if e.TargetHandle == "" {
		if port := f.firstPort(e.Target, false); port != "" {
			m["targetHandle"] = port
		}
	}
	return m
}

// firstPort returns the first output (source side) or input (target side)
// port of the node's registered type. Nodes without a registered type
// contribute nothing, leaving the handle unset.
func (f *Flow) firstPort(nodeID string, output bool) string {
	n, ok := f.store.Node(nodeID)
	if !ok {
		return ""
	}
	f.mu.Lock()
	nt, ok := f.nodeTypes[n.Type]
	f.mu.Unlock()
	if !ok {
		return ""
	}
	if output {
		return nt.FirstOutput()
	}
	return nt.FirstInput()
}

// =============================================================================
// Store Event Maintenance
// =============================================================================

func (f *Flow) onEvent(evt store.Event) {
	ctx := context.Background()
	switch evt.Type {
	case store.EventNodeDeleted:
		f.mu.Lock()
		f.views.Release(evt.NodeID)
		f.compactLocked()
		f.mu.Unlock()
		f.editors.Remove(evt.NodeID)
		for _, edgeID := range evt.DeletedEdges {
			f.editors.Remove(edgeID)
		}
		f.logger.Debug("node deleted", "id", evt.NodeID, "cascaded", len(evt.DeletedEdges))

	case store.EventEdgeDeleted:
		f.editors.Remove(evt.EdgeID)

	case store.EventNodeDataChanged:
		f.refreshNodeEditor(evt.NodeID)

	case store.EventEdgeDataChanged:
		f.refreshEdgeEditor(evt.EdgeID)

	case store.EventNodesReplaced:
		f.mu.Lock()
		f.compactLocked()
		f.mu.Unlock()
		f.pruneEditors()
		observability.Graph().OnReplace(ctx, "nodes", f.store.NodeCount(), nil)
		return

	case store.EventEdgesReplaced:
		f.pruneEditors()
		observability.Graph().OnReplace(ctx, "edges", f.store.EdgeCount(), nil)
		return
	}
	observability.Graph().OnMutation(ctx, string(evt.Type), evt.Origin, nil)
}

// compactLocked drops view registrations whose owners are gone and
// compacts the arena to a contiguous index range.
func (f *Flow) compactLocked() {
	f.views.Compact(f.store.NodeIDs())
}

// pruneEditors disposes editors whose elements no longer exist.
func (f *Flow) pruneEditors() {
	live := make(map[string]bool)
	for _, id := range f.store.NodeIDs() {
		live[id] = true
	}
	for _, e := range f.store.Edges() {
		live[e.ID] = true
	}
	f.editors.Prune(func(id string) bool { return live[id] })
}
