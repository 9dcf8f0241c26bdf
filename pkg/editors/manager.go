package editors

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/flowpanel/flowpanel/pkg/schema"
)

// Manager owns the per-element editor instances. Each element id maps to
// at most one live editor; the editor is rebuilt only when the element's
// shape changes (its type, its data key set, or its schema) and merely
// refreshed on value-only changes.
type Manager struct {
	resolver *Resolver

	mu      sync.Mutex
	entries map[string]*managed
}

type managed struct {
	editor Editor
	typ    string
	keys   string
	schema *schema.Schema
}

// NewManager creates a manager resolving through r.
func NewManager(r *Resolver) *Manager {
	return &Manager{resolver: r, entries: make(map[string]*managed)}
}

// Sync ensures an editor exists for the element described by ctx and
// returns it. A shape change disposes the previous editor and resolves a
// fresh one; a value-only change refreshes the existing editor in place.
func (m *Manager) Sync(ctx Context) Editor {
	sig := dataKeys(ctx.Data)

	m.mu.Lock()
	cur, ok := m.entries[ctx.ID]
	if ok && cur.typ == ctx.Type && cur.keys == sig && cur.schema.Equal(ctx.Schema) {
		editor := cur.editor
		m.mu.Unlock()
		editor.Refresh(ctx.Data)
		return editor
	}
	m.mu.Unlock()

	editor := m.resolver.Resolve(ctx)

	m.mu.Lock()
	if prev, ok := m.entries[ctx.ID]; ok {
		prev.editor.Close()
	}
	m.entries[ctx.ID] = &managed{
		editor: editor,
		typ:    ctx.Type,
		keys:   sig,
		schema: ctx.Schema.Clone(),
	}
	m.mu.Unlock()
	return editor
}

// Editor returns the live editor for an element, if any.
func (m *Manager) Editor(id string) (Editor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, false
	}
	return e.editor, true
}

// Remove disposes the element's editor. Unknown ids are a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		delete(m.entries, id)
	}
	m.mu.Unlock()
	if ok {
		e.editor.Close()
	}
}

// Prune disposes every editor whose element id fails the keep check.
func (m *Manager) Prune(keep func(id string) bool) {
	m.mu.Lock()
	var dropped []*managed
	for id, e := range m.entries {
		if !keep(id) {
			dropped = append(dropped, e)
			delete(m.entries, id)
		}
	}
	m.mu.Unlock()
	for _, e := range dropped {
		e.editor.Close()
	}
}

// Close disposes every editor.
func (m *Manager) Close() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*managed)
	m.mu.Unlock()
	for _, e := range entries {
		e.editor.Close()
	}
}

// Len reports the number of live editors.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func dataKeys(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	return strings.Join(slices.Sorted(maps.Keys(data)), "\x00")
}
