// Package protocol implements the typed patch-message protocol connecting
// the server-side graph model and the canvas, including inbound message
// application, echo suppression, per-session outbound queues, transient
// selection, and drag coalescing.
//
// # Wire format
//
// Messages are JSON objects carrying a "type" discriminator. The inbound
// set (canvas to server) is sync, node_moved, node_deleted, edge_added,
// edge_deleted, selection_changed, and node_clicked. The outbound set
// (server to canvas) adds node_added, patch_node_data, and patch_edge_data;
// deletions and additions are mirrored outward to the sessions that did not
// originate them.
package protocol

import (
	"encoding/json"

	"github.com/flowpanel/flowpanel/pkg/errors"
	"github.com/flowpanel/flowpanel/pkg/spec"
)

// MessageType is the wire discriminator.
type MessageType string

// Protocol message types.
const (
	MsgSync             MessageType = "sync"
	MsgNodeAdded        MessageType = "node_added"
	MsgNodeMoved        MessageType = "node_moved"
	MsgNodeDeleted      MessageType = "node_deleted"
	MsgNodeClicked      MessageType = "node_clicked"
	MsgEdgeAdded        MessageType = "edge_added"
	MsgEdgeDeleted      MessageType = "edge_deleted"
	MsgSelectionChanged MessageType = "selection_changed"
	MsgPatchNodeData    MessageType = "patch_node_data"
	MsgPatchEdgeData    MessageType = "patch_edge_data"
)

// Message is the decoded form of a protocol message. Only the fields
// relevant to the Type are populated; Encode writes back the per-type wire
// shape so a decode/encode cycle is stable.
type Message struct {
	Type MessageType

	// sync
	Nodes []map[string]any
	Edges []map[string]any

	// node_moved / node_clicked / patch_node_data
	NodeID   string
	Position *spec.Position

	// node_deleted / edge_deleted: singular and plural forms are merged
	// into the plural field on decode, union semantics.
	NodeIDs []string
	EdgeIDs []string

	// node_deleted: edge ids removed by the cascade
	DeletedEdges []string

	// edge_added / node_added
	Node map[string]any
	Edge map[string]any

	// edge_deleted / patch_edge_data
	EdgeID string

	// patch_node_data / patch_edge_data
	Patch map[string]any

	// selection_changed
	SelectedNodes []string
	SelectedEdges []string
}

// rawMessage mirrors the union of all wire fields for JSON decoding.
type rawMessage struct {
	Type MessageType `json:"type"`

	Nodes json.RawMessage `json:"nodes,omitempty"`
	Edges json.RawMessage `json:"edges,omitempty"`

	NodeID   string          `json:"node_id,omitempty"`
	NodeIDs  []string        `json:"node_ids,omitempty"`
	EdgeID   string          `json:"edge_id,omitempty"`
	EdgeIDs  []string        `json:"edge_ids,omitempty"`
	Position *spec.Position  `json:"position,omitempty"`
	Node     map[string]any  `json:"node,omitempty"`
	Edge     map[string]any  `json:"edge,omitempty"`
	Patch    map[string]any  `json:"patch,omitempty"`

	DeletedEdges []string `json:"deleted_edges,omitempty"`
}

// Decode parses a wire message. Unknown types decode with just the Type
// set, so subscribers can still observe them; undecodable JSON fails with
// INVALID_MESSAGE.
func Decode(raw []byte) (Message, error) {
	var r rawMessage
	if err := json.Unmarshal(raw, &r); err != nil {
		return Message{}, errors.Wrap(errors.ErrCodeInvalidMessage, err, "decode message")
	}
	if r.Type == "" {
		return Message{}, errors.New(errors.ErrCodeInvalidMessage, "message missing type discriminator")
	}

	m := Message{
		Type:         r.Type,
		NodeID:       r.NodeID,
		EdgeID:       r.EdgeID,
		Position:     r.Position,
		Node:         r.Node,
		Edge:         r.Edge,
		Patch:        r.Patch,
		DeletedEdges: r.DeletedEdges,
	}

	switch r.Type {
	case MsgSync:
		if err := decodeList(r.Nodes, &m.Nodes); err != nil {
			return Message{}, err
		}
		if err := decodeList(r.Edges, &m.Edges); err != nil {
			return Message{}, err
		}
	case MsgSelectionChanged:
		// selection_changed reuses the nodes/edges keys for id lists.
		if err := decodeIDs(r.Nodes, &m.SelectedNodes); err != nil {
			return Message{}, err
		}
		if err := decodeIDs(r.Edges, &m.SelectedEdges); err != nil {
			return Message{}, err
		}
	case MsgNodeDeleted:
		m.NodeIDs = unionIDs(r.NodeIDs, r.NodeID)
	case MsgEdgeDeleted:
		m.EdgeIDs = unionIDs(r.EdgeIDs, r.EdgeID)
	}
	return m, nil
}

// Encode serializes the message into its wire shape.
func (m Message) Encode() ([]byte, error) {
	out := map[string]any{"type": m.Type}
	switch m.Type {
	case MsgSync:
		out["nodes"] = orEmptyList(m.Nodes)
		out["edges"] = orEmptyList(m.Edges)
	case MsgNodeAdded:
		out["node"] = m.Node
	case MsgNodeMoved:
		out["node_id"] = m.NodeID
		if m.Position != nil {
			out["position"] = m.Position
		}
	case MsgNodeDeleted:
		out["node_ids"] = orEmptyIDs(m.NodeIDs)
		out["deleted_edges"] = orEmptyIDs(m.DeletedEdges)
	case MsgNodeClicked:
		out["node_id"] = m.NodeID
	case MsgEdgeAdded:
		out["edge"] = m.Edge
	case MsgEdgeDeleted:
		out["edge_ids"] = orEmptyIDs(m.EdgeIDs)
	case MsgSelectionChanged:
		out["nodes"] = orEmptyIDs(m.SelectedNodes)
		out["edges"] = orEmptyIDs(m.SelectedEdges)
	case MsgPatchNodeData:
		out["node_id"] = m.NodeID
		out["patch"] = m.Patch
	case MsgPatchEdgeData:
		out["edge_id"] = m.EdgeID
		out["patch"] = m.Patch
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMessage, err, "encode %s", m.Type)
	}
	return data, nil
}

// Payload returns the message as a plain mapping, the shape handed to event
// subscribers.
func (m Message) Payload() map[string]any {
	data, err := m.Encode()
	if err != nil {
		return map[string]any{"type": string(m.Type)}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"type": string(m.Type)}
	}
	return out
}

func decodeList(raw json.RawMessage, dst *[]map[string]any) error {
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidMessage, err, "decode element list")
	}
	return nil
}

func decodeIDs(raw json.RawMessage, dst *[]string) error {
	if raw == nil {
		*dst = []string{}
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidMessage, err, "decode id list")
	}
	return nil
}

// unionIDs merges the plural and singular id fields, deduplicating while
// preserving order.
func unionIDs(ids []string, single string) []string {
	out := make([]string, 0, len(ids)+1)
	seen := make(map[string]bool, len(ids)+1)
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	if single != "" && !seen[single] {
		out = append(out, single)
	}
	return out
}

func orEmptyList(list []map[string]any) []map[string]any {
	if list == nil {
		return []map[string]any{}
	}
	return list
}

func orEmptyIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
