package render

import (
	"io"
	"strings"

	"github.com/zheng/cgraph/internal/graph"
)

// DOT renders a Graphviz digraph named G. Every caller gets a node statement,
// so functions without calls still appear; each edge is labelled with the call
// site, or only the file when the position is unknown.
type DOT struct{}

func (DOT) Render(w io.Writer, g *graph.CallGraph) error {
	ew := &errWriter{w: w}
	ew.printf("digraph G {\n")
	for _, e := range g.Entries() {
		ew.printf("    %s [label=%s];\n", dotQuote(e.Key), dotQuote(e.Name()))
	}
	for _, e := range g.Entries() {
		for _, c := range e.Edges {
			ew.printf("    %s -> %s [label=%s];\n", dotQuote(e.Key), dotQuote(c.Callee), dotQuote(c.Label()))
		}
	}
	ew.printf("}\n")
	return ew.err
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "")

func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}
