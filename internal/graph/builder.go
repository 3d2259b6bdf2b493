package graph

// Builder owns the single CallGraph of a run and merges per-file graphs into it.
// Merging appends: a caller key seen again in a later file keeps its earlier
// edges and gains the new ones after them.
type Builder struct {
	graph *CallGraph
	files int
}

// NewBuilder creates a builder whose graph is keyed according to mode.
func NewBuilder(mode IdentityMode) *Builder {
	return &Builder{graph: NewCallGraph(mode)}
}

// Merge appends every entry of one file's graph, preserving its order.
func (b *Builder) Merge(file *CallGraph) {
	for _, e := range file.Entries() {
		dst := b.graph.Ensure(e.ID)
		dst.Edges = append(dst.Edges, e.Edges...)
	}
	b.files++
}

// Graph returns the aggregated graph.
func (b *Builder) Graph() *CallGraph {
	return b.graph
}

// FileCount returns the number of merged files.
func (b *Builder) FileCount() int {
	return b.files
}
