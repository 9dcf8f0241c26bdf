// Package pkg provides the core libraries for flowpanel graph synchronization.
//
// # Overview
//
// Flowpanel keeps a canonical node-edge graph in sync with connected
// canvas clients. The pkg directory is organized around that flow:
//
//  1. [spec] - Canonical node, edge, and type definitions
//  2. [store] - Mutation engine with event notification
//  3. [protocol] - Wire messages, sessions, and the sync handler
//  4. [flow] - Engine facade tying store, views, and editors together
//  5. [transport] - HTTP/WebSocket server
//
// # Architecture
//
// The typical data flow through flowpanel:
//
//	Canvas client (WebSocket frame)
//	         ↓
//	    [protocol] package (decode, debounce, echo suppression)
//	         ↓
//	    [store] package (canonical state + events)
//	         ↓
//	    [flow] package (view indices, editor lifecycle)
//	         ↓
//	    broadcast to other sessions / [render] SVG export
//
// # Quick Start
//
// Run an engine, connect a session, and mutate the graph:
//
//	import (
//	    "github.com/flowpanel/flowpanel/pkg/flow"
//	    "github.com/flowpanel/flowpanel/pkg/spec"
//	)
//
//	f := flow.New(flow.Options{})
//	n, _ := spec.NewNode("a")
//	_ = f.AddNode(n)
//
// # Main Packages
//
// [spec] - Node and edge model with coercion from loosely typed maps.
//
// [schema] - Property schema normalization for editor forms.
//
// [store] - Canonical graph state. Every mutation validates, applies,
// and notifies subscribers with the mutation origin.
//
// [protocol] - Typed patch messages, per-session outbound queues, and
// the handler implementing echo suppression and drag debouncing.
//
// [views] - Contiguous view-index arena for embedded rich content.
//
// [editors] - Schema-driven editor resolution and lifecycle.
//
// [flow] - The embedding facade. Wires store events to view compaction
// and editor refresh, and exposes graph import/export.
//
// [graph] - Serialization types for node-link JSON.
//
// [render] - Graphviz DOT and SVG diagram output.
//
// [cache] - Byte caches for rendered SVGs.
//
// [transport] - HTTP server exposing WebSocket sync, node-link JSON,
// and SVG rendering.
//
// [spec]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/spec
// [schema]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/schema
// [store]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/store
// [protocol]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/protocol
// [views]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/views
// [editors]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/editors
// [flow]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/flow
// [graph]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/graph
// [render]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/render
// [cache]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/cache
// [transport]: https://pkg.go.dev/github.com/flowpanel/flowpanel/pkg/transport
package pkg
