package graph

import (
	"strings"

	"github.com/zheng/cgraph/internal/location"
	"github.com/zheng/cgraph/internal/syntax"
)

// Collector walks one file's neutral tree and records a CallEdge for every
// plain-path call made inside a function body.
//
// The enclosing function is tracked as a stack: entering a nested function
// pushes it, leaving it restores the outer function, so calls made after a
// nested definition are still attributed to the outer function.
type Collector struct {
	file   *syntax.File
	origin string
	graph  *CallGraph
	index  *location.Index

	stack  []FuncID // enclosing functions, innermost last
	scopes []string // enclosing scope and function names, outermost first
}

// NewCollector prepares a collector for file. origin is the file name recorded
// on every edge; it defaults to file.Path.
func NewCollector(file *syntax.File, origin string, mode IdentityMode) *Collector {
	if origin == "" {
		origin = file.Path
	}
	return &Collector{
		file:   file,
		origin: origin,
		graph:  NewCallGraph(mode),
	}
}

// Collect runs a collector over file and returns the file's own graph.
func Collect(file *syntax.File, origin string, mode IdentityMode) *CallGraph {
	c := NewCollector(file, origin, mode)
	c.Run()
	return c.Graph()
}

// Run traverses every root of the file once.
func (c *Collector) Run() {
	for _, n := range c.file.Roots {
		c.visit(n)
	}
}

// Graph returns what has been collected so far.
func (c *Collector) Graph() *CallGraph {
	return c.graph
}

func (c *Collector) visit(n *syntax.Node) {
	switch n.Kind {
	case syntax.KindFunc:
		c.enterFunc(n)
		return
	case syntax.KindScope:
		c.scopes = append(c.scopes, n.Name)
		c.visitChildren(n)
		c.scopes = c.scopes[:len(c.scopes)-1]
		return
	case syntax.KindCall:
		c.recordCall(n)
	}
	c.visitChildren(n)
}

func (c *Collector) visitChildren(n *syntax.Node) {
	for _, child := range n.Children {
		c.visit(child)
	}
}

func (c *Collector) enterFunc(n *syntax.Node) {
	id := FuncID{
		File:  c.origin,
		Scope: append([]string(nil), c.scopes...),
		Name:  n.Name,
	}
	c.graph.Ensure(id)

	c.stack = append(c.stack, id)
	c.scopes = append(c.scopes, n.Name)
	c.visitChildren(n)
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *Collector) recordCall(n *syntax.Node) {
	if !n.IsPlainCall() || len(c.stack) == 0 {
		return
	}
	line, col := c.locate(n.Pos)
	c.graph.Append(c.stack[len(c.stack)-1], CallEdge{
		Callee:     strings.Join(n.Path, c.file.Separator),
		OriginFile: c.origin,
		Line:       line,
		Column:     col,
	})
}

// locate prefers the parser's own line/column and falls back to resolving the
// byte offset against a line index built on first use.
func (c *Collector) locate(p syntax.Pos) (uint, uint) {
	if p.HasLineColumn() {
		return p.Line, p.Column
	}
	if c.index == nil {
		c.index = location.NewIndex(c.file.Text)
	}
	return c.index.Resolve(p.Offset)
}
