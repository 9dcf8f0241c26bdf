// Package spec defines the canonical, validated value objects for graph
// elements: [Node], [Edge], [NodeType], and [EdgeType].
//
// # Architecture
//
// The package sits at the boundary between application code and the graph
// state store. Every API that receives a graph element accepts either a spec
// value or a plain map and normalizes to the canonical form via
// [CoerceNode] / [CoerceEdge] before storage.
//
// # Round-trip
//
// For every valid spec x, FromMap(x.ToMap()) is field-equal to x, excluding
// the View reference, which is handled by the view registry rather than by
// the spec's own serialization.
//
// # Validation
//
// Constructors and Validate methods fail with a VALIDATION error naming the
// offending field. Fields are never silently coerced: a node with an empty
// id is rejected, not renamed.
package spec
