package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/flowpanel/flowpanel/pkg/observability"
	"github.com/flowpanel/flowpanel/pkg/spec"
	"github.com/flowpanel/flowpanel/pkg/store"
)

// Snapshotter provides the outward-facing model: plain mappings with view
// indices substituted for embedded content. The engine facade implements
// it; when absent the handler falls back to the store's own serialization.
type Snapshotter interface {
	// Snapshot returns the full node and edge lists in canonical map form.
	Snapshot() (nodes, edges []map[string]any)
	// NodeSnapshot returns one node in canonical map form.
	NodeSnapshot(id string) (map[string]any, bool)
}

// Options configures a Handler.
type Options struct {
	// Debounce is the quiet period applied to continuous drag updates.
	// With a zero debounce every node_moved message is applied
	// immediately; otherwise bursts collapse into one terminal move.
	Debounce time.Duration

	// QueueSize bounds each session's outbound queue.
	QueueSize int
}

// EventCallback receives an event payload in wire-map form.
type EventCallback func(payload map[string]any)

// Handler connects the graph state store to canvas sessions. It applies
// inbound messages, mirrors mutations outward, and suppresses echo: a
// mutation originating from a session is never sent back to that session,
// while server-side mutations go out to every session.
type Handler struct {
	store  *store.Store
	source Snapshotter
	opts   Options

	mu           sync.Mutex
	sessions     map[string]*Session
	callbacks    map[string][]EventCallback
	pendingMoves map[string]*pendingMove
	syncDepth    int
}

type pendingMove struct {
	origin   string
	position spec.Position
	timer    *time.Timer
}

// NewHandler creates a handler bound to the store and subscribes it to the
// store's mutation events. Pass a nil source to serialize nodes without
// view indices.
func NewHandler(st *store.Store, source Snapshotter, opts Options) *Handler {
	h := &Handler{
		store:        st,
		source:       source,
		opts:         opts,
		sessions:     make(map[string]*Session),
		callbacks:    make(map[string][]EventCallback),
		pendingMoves: make(map[string]*pendingMove),
	}
	st.Subscribe(h.onStoreEvent)
	return h
}

// =============================================================================
// Sessions
// =============================================================================

// Connect registers a canvas session and queues an initial full sync so a
// newly attached canvas starts from the current model.
func (h *Handler) Connect(id string) *Session {
	sess := newSession(id, h.opts.QueueSize)
	h.mu.Lock()
	if old, ok := h.sessions[id]; ok {
		old.Close()
	}
	h.sessions[id] = sess
	h.mu.Unlock()

	if data, err := h.syncMessage().Encode(); err == nil {
		sess.send(data) //nolint:errcheck // a dead session is dropped on next broadcast
	}
	return sess
}

// Disconnect applies any pending debounced move from the session and
// removes it. Unknown ids are ignored.
func (h *Handler) Disconnect(id string) {
	h.Flush()
	h.mu.Lock()
	sess, ok := h.sessions[id]
	if ok {
		delete(h.sessions, id)
	}
	h.mu.Unlock()
	if ok {
		sess.Close()
	}
}

// Sessions returns the ids of connected sessions.
func (h *Handler) Sessions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}

// =============================================================================
// Event Subscription
// =============================================================================

// On registers a callback for the named event, or for every event when the
// name is "*". Callbacks run synchronously in registration order with the
// event's payload map.
func (h *Handler) On(event string, cb EventCallback) {
	h.mu.Lock()
	h.callbacks[event] = append(h.callbacks[event], cb)
	h.mu.Unlock()
}

func (h *Handler) dispatch(event string, payload map[string]any) {
	h.mu.Lock()
	named := append([]EventCallback(nil), h.callbacks[event]...)
	wildcard := append([]EventCallback(nil), h.callbacks["*"]...)
	h.mu.Unlock()
	for _, cb := range named {
		cb(payload)
	}
	for _, cb := range wildcard {
		cb(payload)
	}
}

// =============================================================================
// Inbound
// =============================================================================

// HandleMessage decodes and applies one inbound message from the session.
// Messages are applied in arrival order (FIFO per session is the
// transport's read loop). Redelivered deletions and moves racing a
// deletion are tolerated; structural violations are returned to the caller.
func (h *Handler) HandleMessage(sessionID string, raw []byte) error {
	msg, err := Decode(raw)
	if err != nil {
		return err
	}
	return h.Handle(sessionID, msg)
}

// Handle applies one decoded inbound message. Callers that already hold a
// decoded message (or need its type for instrumentation) use this instead
// of HandleMessage.
func (h *Handler) Handle(sessionID string, msg Message) error {
	switch msg.Type {
	case MsgSync:
		return h.applySync(sessionID, msg)

	case MsgNodeAdded:
		if msg.Node == nil {
			return nil
		}
		node, err := spec.CoerceNode(msg.Node)
		if err != nil {
			return err
		}
		return h.store.AddNode(sessionID, node)

	case MsgNodeMoved:
		if msg.NodeID == "" || msg.Position == nil {
			return nil
		}
		h.moveNode(sessionID, msg.NodeID, *msg.Position)
		return nil

	case MsgNodeDeleted:
		for _, id := range msg.NodeIDs {
			h.store.RemoveNode(sessionID, id)
		}
		return nil

	case MsgEdgeAdded:
		if msg.Edge == nil {
			return nil
		}
		edge, err := spec.CoerceEdge(msg.Edge)
		if err != nil {
			return err
		}
		_, err = h.store.AddEdge(sessionID, edge)
		return err

	case MsgEdgeDeleted:
		for _, id := range msg.EdgeIDs {
			h.store.RemoveEdge(sessionID, id)
		}
		return nil

	case MsgPatchNodeData:
		if msg.NodeID == "" {
			return nil
		}
		return h.store.PatchNodeData(sessionID, msg.NodeID, msg.Patch)

	case MsgPatchEdgeData:
		if msg.EdgeID == "" {
			return nil
		}
		return h.store.PatchEdgeData(sessionID, msg.EdgeID, msg.Patch)

	case MsgSelectionChanged:
		h.store.SetSelection(sessionID, msg.SelectedNodes, msg.SelectedEdges)
		return nil

	case MsgNodeClicked:
		if msg.NodeID != "" {
			h.dispatch(string(MsgNodeClicked), msg.Payload())
		}
		return nil

	default:
		// Unknown types are surfaced to subscribers but change nothing.
		h.dispatch(string(msg.Type), msg.Payload())
		return nil
	}
}

// applySync replaces both lists from a canvas snapshot. The two store
// events it produces are collapsed into a single outbound sync so other
// sessions reconcile once.
func (h *Handler) applySync(origin string, msg Message) error {
	nodes := make([]spec.Node, 0, len(msg.Nodes))
	for _, m := range msg.Nodes {
		n, err := spec.NodeFromMap(m)
		if err != nil {
			return err
		}
		nodes = append(nodes, n)
	}
	edges := make([]spec.Edge, 0, len(msg.Edges))
	for _, m := range msg.Edges {
		e, err := spec.EdgeFromMap(m)
		if err != nil {
			return err
		}
		edges = append(edges, e)
	}
	return h.ReplaceGraph(origin, nodes, edges)
}

// ReplaceGraph atomically applies a full snapshot: nodes first so the edge
// validation sees the new node set. One sync message goes out to every
// session except the origin, and one sync event fires locally.
func (h *Handler) ReplaceGraph(origin string, nodes []spec.Node, edges []spec.Edge) error {
	h.mu.Lock()
	h.syncDepth++
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.syncDepth--
		h.mu.Unlock()
	}()

	if err := h.store.ReplaceNodes(origin, nodes); err != nil {
		return err
	}
	if err := h.store.ReplaceEdges(origin, edges); err != nil {
		return err
	}

	msg := h.syncMessage()
	h.broadcast(msg, origin)
	h.dispatch(string(MsgSync), msg.Payload())
	return nil
}

// moveNode applies a drag update, debounced when configured. Only the
// terminal position of a burst is durably applied; a move racing the
// node's deletion is dropped.
func (h *Handler) moveNode(origin, nodeID string, pos spec.Position) {
	if h.opts.Debounce <= 0 {
		h.store.MoveNode(origin, nodeID, pos) //nolint:errcheck // move racing a delete loses
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if pending, ok := h.pendingMoves[nodeID]; ok {
		pending.origin = origin
		pending.position = pos
		pending.timer.Reset(h.opts.Debounce)
		return
	}
	pending := &pendingMove{origin: origin, position: pos}
	pending.timer = time.AfterFunc(h.opts.Debounce, func() {
		h.applyPendingMove(nodeID)
	})
	h.pendingMoves[nodeID] = pending
}

func (h *Handler) applyPendingMove(nodeID string) {
	h.mu.Lock()
	pending, ok := h.pendingMoves[nodeID]
	if ok {
		delete(h.pendingMoves, nodeID)
	}
	h.mu.Unlock()
	if ok {
		h.store.MoveNode(pending.origin, nodeID, pending.position) //nolint:errcheck // node may be gone
	}
}

// Flush applies every pending debounced move immediately. Called on
// disconnect and useful in tests and shutdown paths.
func (h *Handler) Flush() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.pendingMoves))
	for id, pending := range h.pendingMoves {
		pending.timer.Stop()
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.applyPendingMove(id)
	}
}

// =============================================================================
// Outbound
// =============================================================================

// onStoreEvent mirrors a store mutation outward and dispatches the local
// event. Echo suppression: the originating session is skipped.
func (h *Handler) onStoreEvent(evt store.Event) {
	if evt.Type == store.EventNodesReplaced || evt.Type == store.EventEdgesReplaced {
		h.mu.Lock()
		suppressed := h.syncDepth > 0
		h.mu.Unlock()
		if suppressed {
			return
		}
		msg := h.syncMessage()
		h.broadcast(msg, evt.Origin)
		h.dispatch(string(MsgSync), msg.Payload())
		return
	}

	msg, ok := h.messageForEvent(evt)
	if !ok {
		return
	}
	h.broadcast(msg, evt.Origin)
	h.dispatch(string(msg.Type), msg.Payload())
}

func (h *Handler) messageForEvent(evt store.Event) (Message, bool) {
	switch evt.Type {
	case store.EventNodeAdded:
		return Message{Type: MsgNodeAdded, Node: h.nodeSnapshot(evt)}, true
	case store.EventNodeDeleted:
		return Message{Type: MsgNodeDeleted, NodeIDs: []string{evt.NodeID}, DeletedEdges: evt.DeletedEdges}, true
	case store.EventNodeMoved:
		return Message{Type: MsgNodeMoved, NodeID: evt.NodeID, Position: evt.Position}, true
	case store.EventNodeDataChanged:
		return Message{Type: MsgPatchNodeData, NodeID: evt.NodeID, Patch: evt.Patch}, true
	case store.EventEdgeAdded:
		return Message{Type: MsgEdgeAdded, Edge: evt.Edge.ToMap()}, true
	case store.EventEdgeDeleted:
		return Message{Type: MsgEdgeDeleted, EdgeIDs: []string{evt.EdgeID}}, true
	case store.EventEdgeDataChanged:
		return Message{Type: MsgPatchEdgeData, EdgeID: evt.EdgeID, Patch: evt.Patch}, true
	case store.EventSelectionChanged:
		return Message{Type: MsgSelectionChanged, SelectedNodes: evt.NodeIDs, SelectedEdges: evt.EdgeIDs}, true
	}
	return Message{}, false
}

func (h *Handler) nodeSnapshot(evt store.Event) map[string]any {
	if h.source != nil {
		if m, ok := h.source.NodeSnapshot(evt.NodeID); ok {
			return m
		}
	}
	if evt.Node != nil {
		return evt.Node.ToMap()
	}
	return map[string]any{"id": evt.NodeID}
}

func (h *Handler) syncMessage() Message {
	var nodes, edges []map[string]any
	if h.source != nil {
		nodes, edges = h.source.Snapshot()
	} else {
		for _, n := range h.store.Nodes() {
			nodes = append(nodes, n.ToMap())
		}
		for _, e := range h.store.Edges() {
			edges = append(edges, e.ToMap())
		}
	}
	return Message{Type: MsgSync, Nodes: nodes, Edges: edges}
}

// broadcast queues the message on every session except the originating
// one. Sessions whose queue overflowed are dropped.
func (h *Handler) broadcast(msg Message, skipSession string) {
	data, err := msg.Encode()
	if err != nil {
		return
	}

	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for id, sess := range h.sessions {
		if id == skipSession {
			continue
		}
		targets = append(targets, sess)
	}
	h.mu.Unlock()

	var dead []string
	for _, sess := range targets {
		if err := sess.send(data); err != nil {
			observability.Session().OnQueueOverflow(context.Background(), sess.ID())
			dead = append(dead, sess.ID())
		}
	}
	if len(dead) > 0 {
		h.mu.Lock()
		for _, id := range dead {
			delete(h.sessions, id)
		}
		h.mu.Unlock()
	}
}
