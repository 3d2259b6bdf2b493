package render

import (
	"io"

	"github.com/zheng/cgraph/internal/graph"
)

// Tree renders each caller followed by its calls as a box-drawing list:
//
//	main  src/main.rs
//	├── helper  src/main.rs:2:5
//	└── shared  src/main.rs:4:5
type Tree struct{}

func (Tree) Render(w io.Writer, g *graph.CallGraph) error {
	width := 0
	for _, e := range g.Entries() {
		for _, c := range e.Edges {
			width = max(width, len(c.Callee))
		}
	}

	ew := &errWriter{w: w}
	for i, e := range g.Entries() {
		if i > 0 {
			ew.printf("\n")
		}
		ew.printf("%s  %s\n", e.Key, e.ID.File)
		for j, c := range e.Edges {
			prefix := "├──"
			if j == len(e.Edges)-1 {
				prefix = "└──"
			}
			ew.printf("%s %-*s  %s\n", prefix, width, c.Callee, c.Label())
		}
	}
	return ew.err
}
