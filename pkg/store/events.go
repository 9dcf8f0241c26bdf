package store

import "github.com/flowpanel/flowpanel/pkg/spec"

// EventType identifies the mutation an event describes. The values double
// as the protocol message discriminators for outbound sync.
type EventType string

// Event types emitted by the store, one per successful mutation.
const (
	EventNodeAdded        EventType = "node_added"
	EventNodeDeleted      EventType = "node_deleted"
	EventNodeMoved        EventType = "node_moved"
	EventNodeDataChanged  EventType = "node_data_changed"
	EventEdgeAdded        EventType = "edge_added"
	EventEdgeDeleted      EventType = "edge_deleted"
	EventEdgeDataChanged  EventType = "edge_data_changed"
	EventSelectionChanged EventType = "selection_changed"
	EventNodesReplaced    EventType = "nodes_replaced"
	EventEdgesReplaced    EventType = "edges_replaced"
)

// Event is the typed record of a single store mutation. It drives both the
// outbound sync messages and local listeners (view registry refresh, editor
// re-resolution, application callbacks).
//
// Origin carries the session id that caused the mutation, or empty when the
// mutation came from a server-side API call. Echo suppression keys on it:
// an event is never sent back to its originating session.
type Event struct {
	Type   EventType
	Origin string

	// Set for node events. Copies; safe to retain.
	Node   *spec.Node
	NodeID string

	// Set for edge events.
	Edge   *spec.Edge
	EdgeID string

	// node_moved
	Position *spec.Position

	// node_data_changed / edge_data_changed
	Patch map[string]any

	// node_deleted: ids of edges removed by the cascade
	DeletedEdges []string

	// selection_changed
	NodeIDs []string
	EdgeIDs []string
}

// Listener receives store events synchronously, in subscription order,
// after the mutation has been applied.
type Listener func(Event)
