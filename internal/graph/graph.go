// Package graph holds the call graph data model, the per-file collector that
// fills it, and the builder that merges per-file results into one graph.
package graph

// CallGraph maps caller keys to their recorded calls.
// Callers are kept in first-insertion order and each caller's edges in append order,
// so rendering is deterministic for a fixed file order.
type CallGraph struct {
	mode    IdentityMode
	order   []string
	entries map[string]*Entry
}

// NewCallGraph creates an empty graph keyed according to mode.
func NewCallGraph(mode IdentityMode) *CallGraph {
	if mode == "" {
		mode = IdentityName
	}
	return &CallGraph{
		mode:    mode,
		entries: make(map[string]*Entry),
	}
}

// Mode returns the identity mode the graph was built with.
func (g *CallGraph) Mode() IdentityMode {
	return g.mode
}

// Ensure returns the entry for id, inserting an empty one if absent.
func (g *CallGraph) Ensure(id FuncID) *Entry {
	key := id.Key(g.mode)
	if e, ok := g.entries[key]; ok {
		return e
	}
	e := &Entry{Key: key, ID: id, Edges: []CallEdge{}}
	g.entries[key] = e
	g.order = append(g.order, key)
	return e
}

// Append records an edge for the caller identified by id.
func (g *CallGraph) Append(id FuncID, edge CallEdge) {
	e := g.Ensure(id)
	e.Edges = append(e.Edges, edge)
}

// Lookup returns the entry stored under key.
func (g *CallGraph) Lookup(key string) (*Entry, bool) {
	e, ok := g.entries[key]
	return e, ok
}

// Callees returns the callee names recorded for key, in order.
func (g *CallGraph) Callees(key string) []string {
	e, ok := g.entries[key]
	if !ok {
		return nil
	}
	out := make([]string, len(e.Edges))
	for i, edge := range e.Edges {
		out[i] = edge.Callee
	}
	return out
}

// Entries returns all callers in insertion order.
func (g *CallGraph) Entries() []*Entry {
	out := make([]*Entry, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, g.entries[k])
	}
	return out
}

// Keys returns all caller keys in insertion order.
func (g *CallGraph) Keys() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of callers.
func (g *CallGraph) Len() int {
	return len(g.order)
}

// EdgeCount returns the total number of recorded edges.
func (g *CallGraph) EdgeCount() int {
	n := 0
	for _, e := range g.entries {
		n += len(e.Edges)
	}
	return n
}
