package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/zheng/cgraph/internal/graph"
)

// Mermaid renders a flowchart. Callers and callees share one node namespace:
// a callee whose text equals a caller key points at that caller's node.
type Mermaid struct {
	Direction string // TB, LR, ...
}

func (m Mermaid) Render(w io.Writer, g *graph.CallGraph) error {
	dir := m.Direction
	if dir == "" {
		dir = "LR"
	}
	ids := newNodeIDs()
	ew := &errWriter{w: w}

	ew.printf("flowchart %s\n", dir)
	for _, e := range g.Entries() {
		ew.printf("    %s[%s]\n", ids.get(e.Key), mermaidLabel(e.Key))
	}
	for _, e := range g.Entries() {
		from := ids.get(e.Key)
		for _, c := range e.Edges {
			to, fresh := ids.lookup(c.Callee)
			if fresh {
				ew.printf("    %s[%s]\n", to, mermaidLabel(c.Callee))
			}
			ew.printf("    %s -->|%s| %s\n", from, mermaidLabel(c.Label()), to)
		}
	}
	return ew.err
}

// nodeIDs hands out stable, syntax-safe node ids.
type nodeIDs struct {
	byName map[string]string
	used   map[string]bool
}

func newNodeIDs() *nodeIDs {
	return &nodeIDs{byName: make(map[string]string), used: make(map[string]bool)}
}

func (n *nodeIDs) get(name string) string {
	id, _ := n.lookup(name)
	return id
}

// lookup returns the id for name and whether it was just assigned.
func (n *nodeIDs) lookup(name string) (string, bool) {
	if id, ok := n.byName[name]; ok {
		return id, false
	}
	base := makeNodeID(name)
	id := base
	for i := 2; n.used[id]; i++ {
		id = fmt.Sprintf("%s_%d", base, i)
	}
	n.used[id] = true
	n.byName[name] = id
	return id, true
}

// makeNodeID keeps letters, digits and underscores; everything else becomes '_'.
func makeNodeID(name string) string {
	var b strings.Builder
	b.WriteString("n_")
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var mermaidEscaper = strings.NewReplacer(`"`, "#quot;", "\n", " ")

func mermaidLabel(s string) string {
	return `"` + mermaidEscaper.Replace(s) + `"`
}
