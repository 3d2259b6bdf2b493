// Package syntax defines the language-neutral tree the call graph collector walks,
// and the Parser capability every language front-end implements.
package syntax

// Kind identifies the role of a Node in the neutral tree.
type Kind int

const (
	// KindScope is a named container (module, impl block, receiver type).
	// It only contributes to composite function identity.
	KindScope Kind = iota
	// KindFunc is a function definition; Name holds its simple name.
	KindFunc
	// KindCall is a call expression. Path holds the target path segments when the
	// target is a plain reference path and is nil otherwise.
	KindCall
)

func (k Kind) String() string {
	switch k {
	case KindScope:
		return "scope"
	case KindFunc:
		return "func"
	case KindCall:
		return "call"
	}
	return "unknown"
}

// Pos is a position inside one file's text.
// Line and Column are 1-based; Line == 0 means the parser only knew the byte offset.
type Pos struct {
	Offset int
	Line   uint
	Column uint
}

// HasLineColumn reports whether the parser supplied line/column itself.
func (p Pos) HasLineColumn() bool {
	return p.Line > 0
}

// Node is one element of the neutral tree. Front-ends keep only the nodes the
// collector cares about and lift everything else, so Children are the nearest
// interesting descendants in source order.
type Node struct {
	Kind     Kind
	Name     string   // KindFunc, KindScope
	Path     []string // KindCall, nil when the target is not a plain path
	Pos      Pos      // KindCall: start of the target expression; otherwise start of the node
	Children []*Node
}

// IsPlainCall reports whether a call node targets a plain reference path.
func (n *Node) IsPlainCall() bool {
	return n.Kind == KindCall && len(n.Path) > 0
}

// File is the parsed form of one source file.
type File struct {
	Path      string
	Language  string
	Separator string // joins call-target path segments, e.g. "::" or "."
	Text      []byte
	Roots     []*Node
}

// Func builds a function-definition node.
func Func(name string, pos Pos, children ...*Node) *Node {
	return &Node{Kind: KindFunc, Name: name, Pos: pos, Children: children}
}

// Call builds a call node. A nil path marks a call the collector must skip.
func Call(path []string, pos Pos, children ...*Node) *Node {
	return &Node{Kind: KindCall, Path: path, Pos: pos, Children: children}
}

// Scope builds a named container node.
func Scope(name string, pos Pos, children ...*Node) *Node {
	return &Node{Kind: KindScope, Name: name, Pos: pos, Children: children}
}
