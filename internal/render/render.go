// Package render writes a finished call graph in one of the output formats.
package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/zheng/cgraph/internal/graph"
)

// Format names an output format.
type Format string

const (
	FormatDOT     Format = "dot"
	FormatJSON    Format = "json"
	FormatMermaid Format = "mermaid"
	FormatTree    Format = "tree"
)

// Formats lists every supported format, default first.
var Formats = []Format{FormatDOT, FormatJSON, FormatMermaid, FormatTree}

// ErrUnknownFormat is returned for a format name that has no renderer.
var ErrUnknownFormat = errors.New("unknown output format")

// Renderer writes a graph. Renderers only read the graph.
type Renderer interface {
	Render(w io.Writer, g *graph.CallGraph) error
}

// ParseFormat validates a format name; "" selects DOT.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatDOT, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// New returns the renderer for f.
func New(f Format) (Renderer, error) {
	switch f {
	case FormatDOT, "":
		return DOT{}, nil
	case FormatJSON:
		return JSON{Indent: "  "}, nil
	case FormatMermaid:
		return Mermaid{Direction: "LR"}, nil
	case FormatTree:
		return Tree{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// errWriter keeps the first write error so renderers can write unconditionally
// and check once at the end.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
