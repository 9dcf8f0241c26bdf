// Package views implements the index-based indirection that lets a node or
// edge embed arbitrary rich content without serializing it.
//
// The registry is an arena of content objects addressed by integer index.
// A payload carries only the index (view_idx), never the object itself. An
// index stays stable for the life of its owning element; after deletions the
// arena is compacted so indices are contiguous again, and the resulting
// remap is applied to all surviving owners at once.
//
// The registry is not safe for concurrent use; callers serialize access
// through the graph state store's mutation path.
package views

import "slices"

// Registry owns the arena of embeddable view objects.
type Registry struct {
	objects []any            // arena slot per index; nil after release
	owners  []string         // owning element id per index
	indices map[string]int   // owner id -> index
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{indices: make(map[string]int)}
}

// Extract removes the "view" entry from a payload mapping and returns the
// stripped payload together with the view object, or nil when the payload
// carries none. The input map is not modified.
func Extract(payload map[string]any) (map[string]any, any) {
	view, ok := payload["view"]
	if !ok {
		return payload, nil
	}
	stripped := make(map[string]any, len(payload)-1)
	for k, v := range payload {
		if k != "view" {
			stripped[k] = v
		}
	}
	return stripped, view
}

// Assign returns a stable index for the owner's view object. If the owner
// already holds an index, that index is reused and the object replaced in
// place; otherwise the next free index is allocated. Freed indices are not
// reused until Compact runs, so a deleted node's index never aliases an
// unrelated node.
func (r *Registry) Assign(ownerID string, view any) int {
	if idx, ok := r.indices[ownerID]; ok {
		r.objects[idx] = view
		return idx
	}
	idx := len(r.objects)
	r.objects = append(r.objects, view)
	r.owners = append(r.owners, ownerID)
	r.indices[ownerID] = idx
	return idx
}

// Index returns the owner's view index, if it holds one.
func (r *Registry) Index(ownerID string) (int, bool) {
	idx, ok := r.indices[ownerID]
	return idx, ok
}

// Release frees the owner's slot. The index is left as a hole until Compact.
// Releasing an unknown owner is a no-op.
func (r *Registry) Release(ownerID string) {
	idx, ok := r.indices[ownerID]
	if !ok {
		return
	}
	delete(r.indices, ownerID)
	r.objects[idx] = nil
	r.owners[idx] = ""
}

// Compact rebuilds the index space, keeping only the surviving owners, and
// returns the remap {old: new} for every owner whose index changed. After
// compaction indices are contiguous from 0, surviving objects keep their
// identity, and relative order is preserved.
func (r *Registry) Compact(surviving []string) map[int]int {
	keep := make(map[string]bool, len(surviving))
	for _, id := range surviving {
		keep[id] = true
	}

	remap := make(map[int]int)
	var objects []any
	var owners []string
	indices := make(map[string]int, len(r.indices))

	for old, owner := range r.owners {
		if owner == "" || !keep[owner] {
			continue
		}
		next := len(objects)
		if next != old {
			remap[old] = next
		}
		objects = append(objects, r.objects[old])
		owners = append(owners, owner)
		indices[owner] = next
	}

	r.objects = objects
	r.owners = owners
	r.indices = indices
	return remap
}

// Objects returns the rendered view object list in index order. The slice
// is freshly built on every call and never mutated afterwards, so the
// rendering boundary can diff by identity.
func (r *Registry) Objects() []any {
	return slices.Clone(r.objects)
}

// Len returns the number of arena slots, including unreclaimed holes.
func (r *Registry) Len() int {
	return len(r.objects)
}
