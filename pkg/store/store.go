// Package store owns the authoritative node and edge lists of a graph and
// is the single point every other component consults for current state.
//
// # Guarantees
//
//   - Node ids are unique across the node list at all times.
//   - Every edge references existing nodes; deleting a node cascades to
//     delete all edges touching it.
//   - Deletions are idempotent no-ops when the id is absent, so redelivered
//     delete messages are safe to apply twice.
//   - Every successful mutation emits exactly one typed [Event].
//   - A failed mutation leaves the store in its pre-call state.
//
// Mutations are serialized through one mutex, so concurrent sessions get
// last-write-wins at operation granularity; no merge policy is applied.
package store

import (
	"maps"
	"slices"
	"sync"

	"github.com/flowpanel/flowpanel/pkg/errors"
	"github.com/flowpanel/flowpanel/pkg/spec"
)

// Store is the graph state machine. The zero value is not usable; use New.
type Store struct {
	mu    sync.Mutex
	nodes []spec.Node
	edges []spec.Edge

	// Transient selection, re-associated by id across full replaces.
	selectedNodes map[string]bool
	selectedEdges map[string]bool

	listeners []Listener
}

// New creates an empty store.
func New() *Store {
	return &Store{
		selectedNodes: make(map[string]bool),
		selectedEdges: make(map[string]bool),
	}
}

// Subscribe registers a listener for mutation events. Listeners run
// synchronously in subscription order, after the mutation is applied and
// outside the store's lock, so they may read back from the store.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) emit(evt Event) {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(evt)
	}
}

// =============================================================================
// Node Operations
// =============================================================================

// AddNode validates the node, applies defaults, and appends it.
// Fails with DUPLICATE_ID when the id collides with an existing node.
func (s *Store) AddNode(origin string, n spec.Node) error {
	n.ApplyDefaults()
	if err := n.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.indexOfNode(n.ID) >= 0 {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeDuplicateID, "node %q already exists", n.ID)
	}
	if n.Selected {
		s.selectedNodes[n.ID] = true
	}
	s.nodes = append(s.nodes, n.Clone())
	added := n.Clone()
	s.mu.Unlock()

	s.emit(Event{Type: EventNodeAdded, Origin: origin, Node: &added, NodeID: added.ID})
	return nil
}

// RemoveNode removes the node and cascades removal of every edge touching
// it. Removing an absent id is an idempotent no-op and emits no event.
func (s *Store) RemoveNode(origin string, id string) {
	s.mu.Lock()
	idx := s.indexOfNode(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	removed := s.nodes[idx].Clone()
	s.nodes = slices.Delete(s.nodes, idx, idx+1)
	delete(s.selectedNodes, id)

	var deletedEdges []string
	var kept []spec.Edge
	for _, e := range s.edges {
		if e.Touches(id) {
			deletedEdges = append(deletedEdges, e.ID)
			delete(s.selectedEdges, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	s.mu.Unlock()

	s.emit(Event{
		Type:         EventNodeDeleted,
		Origin:       origin,
		Node:         &removed,
		NodeID:       id,
		DeletedEdges: deletedEdges,
	})
}

// MoveNode replaces the node's position. Position is not part of data, so
// moving never triggers editor re-resolution.
// Fails with NOT_FOUND when the id is absent.
func (s *Store) MoveNode(origin string, id string, pos spec.Position) error {
	s.mu.Lock()
	idx := s.indexOfNode(id)
	if idx < 0 {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeNotFound, "no node %q", id)
	}
	s.nodes[idx].Position = pos
	s.mu.Unlock()

	s.emit(Event{Type: EventNodeMoved, Origin: origin, NodeID: id, Position: &pos})
	return nil
}

// PatchNodeData shallow-merges the partial mapping into the node's data:
// keys in the patch overwrite, all others stay untouched.
// Fails with NOT_FOUND when the id is absent.
func (s *Store) PatchNodeData(origin string, id string, patch map[string]any) error {
	s.mu.Lock()
	idx := s.indexOfNode(id)
	if idx < 0 {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeNotFound, "no node %q", id)
	}
	data := maps.Clone(s.nodes[idx].Data)
	if data == nil {
		data = map[string]any{}
	}
	maps.Copy(data, patch)
	s.nodes[idx].Data = data
	s.mu.Unlock()

	s.emit(Event{Type: EventNodeDataChanged, Origin: origin, NodeID: id, Patch: maps.Clone(patch)})
	return nil
}

// =============================================================================
// Edge Operations
// =============================================================================

// AddEdge validates the edge, derives a missing id, and appends it. Fails
// with DANGLING_REFERENCE when either endpoint does not exist, and with
// DUPLICATE_ID when the edge id collides.
// The stored edge, including any derived id, is returned.
func (s *Store) AddEdge(origin string, e spec.Edge) (spec.Edge, error) {
	e.ApplyDefaults()
	if err := e.Validate(); err != nil {
		return spec.Edge{}, err
	}

	s.mu.Lock()
	if s.indexOfNode(e.Source) < 0 {
		s.mu.Unlock()
		return spec.Edge{}, errors.New(errors.ErrCodeDanglingReference, "edge %q: unknown source node %q", e.ID, e.Source)
	}
	if s.indexOfNode(e.Target) < 0 {
		s.mu.Unlock()
		return spec.Edge{}, errors.New(errors.ErrCodeDanglingReference, "edge %q: unknown target node %q", e.ID, e.Target)
	}
	if s.indexOfEdge(e.ID) >= 0 {
		s.mu.Unlock()
		return spec.Edge{}, errors.New(errors.ErrCodeDuplicateID, "edge %q already exists", e.ID)
	}
	if e.Selected {
		s.selectedEdges[e.ID] = true
	}
	s.edges = append(s.edges, e.Clone())
	added := e.Clone()
	s.mu.Unlock()

	s.emit(Event{Type: EventEdgeAdded, Origin: origin, Edge: &added, EdgeID: added.ID})
	return added, nil
}

// RemoveEdge removes the edge by id. Removing an absent id is an idempotent
// no-op and emits no event.
func (s *Store) RemoveEdge(origin string, id string) {
	s.mu.Lock()
	idx := s.indexOfEdge(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	removed := s.edges[idx].Clone()
	s.edges = slices.Delete(s.edges, idx, idx+1)
	delete(s.selectedEdges, id)
	s.mu.Unlock()

	s.emit(Event{Type: EventEdgeDeleted, Origin: origin, Edge: &removed, EdgeID: id})
}

// PatchEdgeData shallow-merges the partial mapping into the edge's data.
// Fails with NOT_FOUND when the id is absent.
func (s *Store) PatchEdgeData(origin string, id string, patch map[string]any) error {
	s.mu.Lock()
	idx := s.indexOfEdge(id)
	if idx < 0 {
		s.mu.Unlock()
		return errors.New(errors.ErrCodeNotFound, "no edge %q", id)
	}
	data := maps.Clone(s.edges[idx].Data)
	if data == nil {
		data = map[string]any{}
	}
	maps.Copy(data, patch)
	s.edges[idx].Data = data
	s.mu.Unlock()

	s.emit(Event{Type: EventEdgeDataChanged, Origin: origin, EdgeID: id, Patch: maps.Clone(patch)})
	return nil
}

// =============================================================================
// Selection
// =============================================================================

// SetSelection replaces the transient selection, filtering out ids that no
// longer exist. The filtered selection is returned and the Selected flags
// on nodes and edges are kept in sync.
func (s *Store) SetSelection(origin string, nodeIDs, edgeIDs []string) (nodes, edges []string) {
	s.mu.Lock()
	s.selectedNodes = make(map[string]bool)
	for _, id := range nodeIDs {
		if s.indexOfNode(id) >= 0 {
			s.selectedNodes[id] = true
		}
	}
	s.selectedEdges = make(map[string]bool)
	for _, id := range edgeIDs {
		if s.indexOfEdge(id) >= 0 {
			s.selectedEdges[id] = true
		}
	}
	s.applySelectionLocked()
	nodes, edges = s.selectionLocked()
	s.mu.Unlock()

	s.emit(Event{Type: EventSelectionChanged, Origin: origin, NodeIDs: nodes, EdgeIDs: edges})
	return nodes, edges
}

// Selection returns the selected node and edge ids in list order.
func (s *Store) Selection() (nodes, edges []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

func (s *Store) selectionLocked() (nodes, edges []string) {
	nodes = []string{}
	for _, n := range s.nodes {
		if s.selectedNodes[n.ID] {
			nodes = append(nodes, n.ID)
		}
	}
	edges = []string{}
	for _, e := range s.edges {
		if s.selectedEdges[e.ID] {
			edges = append(edges, e.ID)
		}
	}
	return nodes, edges
}

func (s *Store) applySelectionLocked() {
	for i := range s.nodes {
		s.nodes[i].Selected = s.selectedNodes[s.nodes[i].ID]
	}
	for i := range s.edges {
		s.edges[i].Selected = s.selectedEdges[s.edges[i].ID]
	}
}

// =============================================================================
// Batch Replacement
// =============================================================================

// ReplaceNodes swaps in a full node list, as delivered by a sync message.
// The transient selection survives the replacement: nodes are re-associated
// by id, not by position. Edges referencing nodes missing from the new list
// are cascaded out.
// Fails with DUPLICATE_ID (and changes nothing) when the list repeats an id.
func (s *Store) ReplaceNodes(origin string, nodes []spec.Node) error {
	replacement := make([]spec.Node, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		n.ApplyDefaults()
		if err := n.Validate(); err != nil {
			return err
		}
		if seen[n.ID] {
			return errors.New(errors.ErrCodeDuplicateID, "node %q repeated in replacement list", n.ID)
		}
		seen[n.ID] = true
		replacement = append(replacement, n.Clone())
	}

	s.mu.Lock()
	s.nodes = replacement
	var kept []spec.Edge
	for _, e := range s.edges {
		if seen[e.Source] && seen[e.Target] {
			kept = append(kept, e)
		} else {
			delete(s.selectedEdges, e.ID)
		}
	}
	s.edges = kept
	for id := range s.selectedNodes {
		if !seen[id] {
			delete(s.selectedNodes, id)
		}
	}
	s.applySelectionLocked()
	s.mu.Unlock()

	s.emit(Event{Type: EventNodesReplaced, Origin: origin})
	return nil
}

// ReplaceEdges swaps in a full edge list. Every edge must reference nodes
// present in the store; the whole replacement is rejected otherwise.
func (s *Store) ReplaceEdges(origin string, edges []spec.Edge) error {
	replacement := make([]spec.Edge, 0, len(edges))
	seen := make(map[string]bool, len(edges))

	s.mu.Lock()
	for _, e := range edges {
		e.ApplyDefaults()
		if err := e.Validate(); err != nil {
			s.mu.Unlock()
			return err
		}
		if seen[e.ID] {
			s.mu.Unlock()
			return errors.New(errors.ErrCodeDuplicateID, "edge %q repeated in replacement list", e.ID)
		}
		if s.indexOfNode(e.Source) < 0 {
			s.mu.Unlock()
			return errors.New(errors.ErrCodeDanglingReference, "edge %q: unknown source node %q", e.ID, e.Source)
		}
		if s.indexOfNode(e.Target) < 0 {
			s.mu.Unlock()
			return errors.New(errors.ErrCodeDanglingReference, "edge %q: unknown target node %q", e.ID, e.Target)
		}
		seen[e.ID] = true
		replacement = append(replacement, e.Clone())
	}
	s.edges = replacement
	for id := range s.selectedEdges {
		if !seen[id] {
			delete(s.selectedEdges, id)
		}
	}
	s.applySelectionLocked()
	s.mu.Unlock()

	s.emit(Event{Type: EventEdgesReplaced, Origin: origin})
	return nil
}

// =============================================================================
// Reads
// =============================================================================

// Nodes returns a snapshot copy of the node list.
func (s *Store) Nodes() []spec.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]spec.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Edges returns a snapshot copy of the edge list.
func (s *Store) Edges() []spec.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]spec.Edge, len(s.edges))
	for i, e := range s.edges {
		out[i] = e.Clone()
	}
	return out
}

// Node returns a copy of the node and whether it exists.
func (s *Store) Node(id string) (spec.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOfNode(id); idx >= 0 {
		return s.nodes[idx].Clone(), true
	}
	return spec.Node{}, false
}

// Edge returns a copy of the edge and whether it exists.
func (s *Store) Edge(id string) (spec.Edge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOfEdge(id); idx >= 0 {
		return s.edges[idx].Clone(), true
	}
	return spec.Edge{}, false
}

// NodeIDs returns the node ids in list order.
func (s *Store) NodeIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.nodes))
	for i, n := range s.nodes {
		ids[i] = n.ID
	}
	return ids
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

func (s *Store) indexOfNode(id string) int {
	return slices.IndexFunc(s.nodes, func(n spec.Node) bool { return n.ID == id })
}

func (s *Store) indexOfEdge(id string) int {
	return slices.IndexFunc(s.edges, func(e spec.Edge) bool { return e.ID == id })
}
